package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/vet-clinic/internal/api"
)

func TestClassifyBooking(t *testing.T) {
	tests := []struct {
		name string
		res  response
		err  error
		want outcome
	}{
		{"created", response{status: http.StatusCreated}, nil, outcomeSuccess},
		{"overlap", response{status: http.StatusConflict, code: api.CodeOverlapDetected}, nil, outcomeConflict},
		{"override confirmation", response{status: http.StatusConflict, code: api.CodeOverrideConfirmation}, nil, outcomeConflict},
		{"lock timeout", response{status: http.StatusConflict, code: api.CodeScheduleBusy}, nil, outcomeBusy},
		{"server error", response{status: http.StatusInternalServerError}, nil, outcomeError},
		{"transport error", response{}, errors.New("connection refused"), outcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyBooking(tt.res, tt.err))
		})
	}
}

func TestSendReadsErrorCodeAndReusesConnection(t *testing.T) {
	var newConns atomic.Int32
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error_code":"SCHEDULE_BUSY","message":"busy"}` + "\n\n"))
	}))
	srv.Config.ConnState = func(_ net.Conn, state http.ConnState) {
		if state == http.StateNew {
			newConns.Add(1)
		}
	}
	srv.Start()
	t.Cleanup(srv.Close)

	s := &Simulator{config: SimConfig{APIBaseURL: srv.URL}, client: srv.Client(), token: "tok"}
	for i := 0; i < 3; i++ {
		res, _, err := s.send(context.Background(), http.MethodPost, "/appointments", []byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, http.StatusConflict, res.status)
		assert.Equal(t, api.CodeScheduleBusy, res.code)
	}
	assert.Equal(t, int32(1), newConns.Load())
}

func TestOperationMetricsRecord(t *testing.T) {
	var om OperationMetrics
	om.Record(1, outcomeSuccess)
	om.Record(1, outcomeConflict)
	om.Record(1, outcomeBusy)
	om.Record(1, outcomeError)

	assert.Equal(t, int64(4), om.Total)
	assert.Equal(t, int64(1), om.Success)
	assert.Equal(t, int64(1), om.Conflict)
	assert.Equal(t, int64(1), om.Busy)
	assert.Equal(t, int64(1), om.Error)
}
