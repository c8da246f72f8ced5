package gcsstore

import (
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "indexrunner-state", Domain: "blog.example.com"})
	require.Error(t, err)

	client := &storage.Client{}
	_, err = New(client, Config{Domain: "blog.example.com"})
	require.Error(t, err)

	_, err = New(client, Config{Bucket: "indexrunner-state"})
	require.Error(t, err)

	store, err := New(client, Config{Bucket: "indexrunner-state", Domain: "blog.example.com"})
	require.NoError(t, err)
	require.Equal(t, "gs://indexrunner-state/ledgers/blog.example.com.csv", store.URI())
}
