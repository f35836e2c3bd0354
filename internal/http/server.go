package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// RunServer sirve en ln hasta que ctx termina y recien devuelve cuando los
// requests en curso terminaron, o cuando vence grace. Vencido grace se cierran
// las conexiones que quedan.
func RunServer(ctx context.Context, srv *http.Server, ln net.Listener, grace time.Duration) error {
	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ln) }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		_ = srv.Close()
	}
	if serr := <-serveErr; serr != nil && !errors.Is(serr, http.ErrServerClosed) && err == nil {
		err = serr
	}
	return err
}
