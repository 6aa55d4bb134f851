package host

import (
	"context"

	"github.com/pkg/errors"
	"github.com/skratchdot/open-golang/open"
)

// BrowserOpener opens URIs with the platform's default handler.
type BrowserOpener struct {
	// run is swapped in tests.
	run func(uri string) error
}

// NewBrowserOpener creates a BrowserOpener using xdg-open, open or start.
func NewBrowserOpener() *BrowserOpener {
	return &BrowserOpener{run: open.Run}
}

// OpenExternal implements URIOpener.
func (o *BrowserOpener) OpenExternal(ctx context.Context, uri string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := o.run(uri); err != nil {
		return errors.Wrapf(err, "open %s", uri)
	}
	return nil
}
