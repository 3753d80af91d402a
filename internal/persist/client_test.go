package persist

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/solatis/querykeeper/internal/core/auth"
	"github.com/solatis/querykeeper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL+"/api/v1/query", 5*time.Second, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_RejectsBadURL(t *testing.T) {
	for _, u := range []string{"", "localhost:4001", "ftp://host/x", "http://"} {
		_, err := NewClient(u, time.Second)
		assert.Error(t, err, u)
	}
}

func TestLoad(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"root","combinator":"OR","rules":[{"id":"r1","field":"memberAge","operator":">","value":25}]}`)
	})

	tree, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, types.CombinatorOr, tree.Combinator)
	require.Len(t, tree.Rules, 1)
	assert.Equal(t, "25", tree.Rules[0].Leaf.Value)
}

func TestLoad_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := c.Load(context.Background())
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Equal(t, "boom", statusErr.Body)
}

func TestLoad_InvalidDocument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `[1,2,3]`)
	})

	_, err := c.Load(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidTree)
}

func TestLoad_TooLarge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"rules":[],"pad":"`+strings.Repeat("x", types.MaxDocumentSize)+`"}`)
	})

	_, err := c.Load(context.Background())
	assert.ErrorIs(t, err, ErrBodyTooLarge)
}

func TestSave(t *testing.T) {
	var gotBody string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get(auth.HeaderSignature))
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusCreated)
	})

	tree := &types.RuleGroup{ID: "root", Combinator: types.CombinatorAnd, Rules: []types.Rule{
		types.LeafRule(types.RuleLeaf{ID: "r1", Field: "memberAge", Operator: ">", Value: "25", DataType: "number"}),
	}}
	require.NoError(t, c.Save(context.Background(), tree))
	assert.JSONEq(t, `{"id":"root","combinator":"AND","rules":[{"id":"r1","field":"memberAge","operator":">","value":"25","dataType":"number"}]}`, gotBody)
}

func TestSave_Signed(t *testing.T) {
	keyID := "0123456789abcdef0123456789abcdef"
	secret := []byte("testsecret1234567890abcdefghijklmnop")
	verifier := auth.NewAuthenticator(map[string][]byte{keyID: secret})

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig, err := auth.ParseSignature(
			r.Header.Get(auth.HeaderKeyID),
			r.Header.Get(auth.HeaderTimestamp),
			r.Header.Get(auth.HeaderSignature),
		)
		require.NoError(t, err)
		assert.NoError(t, verifier.Verify(sig, r.Method, r.URL.Path, body))
		w.WriteHeader(http.StatusCreated)
	}, WithSigner(auth.NewSigner(keyID, secret)))

	require.NoError(t, c.Save(context.Background(), types.NewRoot()))
}

func TestSave_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := c.Save(context.Background(), types.NewRoot())
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
}

func TestSnippet(t *testing.T) {
	t.Run("short body kept", func(t *testing.T) {
		assert.Equal(t, "nope", snippet([]byte("  nope \n")))
	})

	t.Run("cut on rune boundary", func(t *testing.T) {
		body := strings.Repeat("a", 255) + "é" + strings.Repeat("b", 10)
		got := snippet([]byte(body))
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("a", 255), got)
	})
}
