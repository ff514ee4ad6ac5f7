package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/bodymetrics/internal/core"
	"github.com/JonMunkholm/bodymetrics/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"csv read failure", fmt.Errorf("import roundtrip: %w", fmt.Errorf("%w: %w", core.ErrInvalidCSV, errors.New("unexpected EOF"))), http.StatusBadRequest},
		{"short header", fmt.Errorf("%w: got 3 columns", core.ErrInvalidFormat), http.StatusBadRequest},
		{"unknown indicator", fmt.Errorf("%w %q", core.ErrUnknownIndicator, "muscle"), http.StatusBadRequest},
		{"bad body", fmt.Errorf("%w: value %q", errBadRequest, "abc"), http.StatusBadRequest},
		{"oversized upload", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"limiter busy", core.ErrTooManyImports, http.StatusServiceUnavailable},
		{"missing client", fmt.Errorf("%w: P404", store.ErrClientNotFound), http.StatusNotFound},
		{"duplicate client", store.ErrClientExists, http.StatusConflict},
		{"archive off", store.ErrArchiveDisabled, http.StatusNotImplemented},
		{"import timeout", fmt.Errorf("parse: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"message text alone", errors.New("invalid csv: bare quote"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
