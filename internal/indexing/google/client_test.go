package google

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/searchpress/indexrunner/internal/indexing"
)

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want indexing.Class
		code int
	}{
		{"quota exceeded", &googleapi.Error{Code: 429, Message: "quota"}, indexing.ClassTransient, 429},
		{"server error", &googleapi.Error{Code: 503, Message: "unavailable"}, indexing.ClassTransient, 503},
		{"unauthorized", &googleapi.Error{Code: 401, Message: "no token"}, indexing.ClassFatal, 401},
		{"forbidden", &googleapi.Error{Code: 403, Message: "permission denied"}, indexing.ClassFatal, 403},
		{"bad request", &googleapi.Error{Code: 400, Message: "invalid url"}, indexing.ClassPermanent, 400},
		{"not found", &googleapi.Error{Code: 404, Message: "nope"}, indexing.ClassPermanent, 404},
		{"transport failure", errors.New("connection refused"), indexing.ClassTransient, 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Classify("https://blog.example.com/post", tc.err)
			require.Equal(t, tc.want, got.Class)
			require.Equal(t, tc.code, got.StatusCode)
			require.Equal(t, "https://blog.example.com/post", got.URL)
			require.ErrorIs(t, got, tc.err)
		})
	}
}

func TestClassifyWrappedError(t *testing.T) {
	t.Parallel()

	inner := &googleapi.Error{Code: 429, Message: "quota"}
	got := Classify("https://blog.example.com/post", errors.Join(errors.New("publish"), inner))
	require.Equal(t, indexing.ClassTransient, got.Class)
}

func TestNewRequiresCredentials(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), "")
	require.Error(t, err)
}
