package certificates_test

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/kgateway-dev/gwsuite/pkg/certificates"
)

func TestStores(t *testing.T) {
	stores := map[string]func() certificates.Store{
		"memory": func() certificates.Store { return certificates.NewMemoryStore() },
		"file":   func() certificates.Store { return certificates.NewFileStore(afero.NewMemMapFs(), "/store") },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			r := require.New(t)
			s := newStore()

			_, err := s.Get("server")
			r.ErrorIs(err, certificates.ErrNotFound)

			labels, err := s.Labels()
			r.NoError(err)
			r.Empty(labels)

			first := &certificates.Certificate{Key: []byte("k1"), Certificate: []byte("c1")}
			r.NoError(s.Set("server", first))
			got, err := s.Get("server")
			r.NoError(err)
			r.Equal(first.Certificate, got.Certificate)
			r.Equal(first.Key, got.Key)
			r.Empty(got.Chain)

			second := &certificates.Certificate{Key: []byte("k2"), Certificate: []byte("c2"), Chain: []byte("ca")}
			r.NoError(s.Set("server", second))
			r.NoError(s.Set("httpbin", first))
			got, err = s.Get("server")
			r.NoError(err)
			r.Equal([]byte("c2"), got.Certificate)
			r.Equal([]byte("ca"), got.Chain)

			labels, err = s.Labels()
			r.NoError(err)
			r.Equal([]string{"httpbin", "server"}, labels)

			r.NoError(s.Delete("server"))
			r.NoError(s.Delete("server"))
			_, err = s.Get("server")
			r.ErrorIs(err, certificates.ErrNotFound)
		})
	}
}

func TestFileStoreRejectsPathLabels(t *testing.T) {
	r := require.New(t)
	s := certificates.NewFileStore(afero.NewMemMapFs(), "/store")

	for _, label := range []string{"", "..", "a/b", `a\b`} {
		r.Error(s.Set(label, &certificates.Certificate{}), label)
	}
}
