package reader

import (
	"log/slog"

	"github.com/gregLibert/felica-pcsc/pkg/pcsc"
)

// Run opens a session on the named reader, runs the full setup, calls fn and
// closes the session on every exit path, panics included.
//
// The error of the setup or of fn wins over a teardown error, which is then
// only logged. A teardown error is returned when nothing else failed.
func Run(t pcsc.Transport, name string, fn func(*Session) error, opts ...Option) (err error) {
	s, err := StartSessionForReader(t, name, opts...)
	if err != nil {
		return err
	}

	defer func() {
		closeErr := s.Close()
		if closeErr == nil {
			return
		}
		if err != nil {
			s.logger.Warn("Teardown failed", slog.Any("err", closeErr))
			return
		}
		err = closeErr
	}()

	if err := s.Setup(); err != nil {
		return err
	}
	return fn(s)
}
