package app

import (
	"context"
	"errors"
	"net/http"
)

// shutdown stops the HTTP servers first so no new work arrives, then the
// module and its connections.
func (app *App) shutdown(servers ...*http.Server) error {
	app.Logger.Info("Shutting down application...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range servers {
		if srv != nil {
			errs = append(errs, srv.Shutdown(ctx))
		}
	}
	errs = append(errs, app.Close())
	return errors.Join(errs...)
}
