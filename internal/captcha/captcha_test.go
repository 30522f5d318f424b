package captcha

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicops/patient-admin/internal/session"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestIssueStoresAnswerAndRendersPNG(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	issuer := NewIssuer(store)

	img, err := issuer.Issue(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	d, err := store.Get(context.Background(), "sid-1")
	require.NoError(t, err)
	assert.NotEmpty(t, d.Captcha)
}

func TestIssueOverwritesPendingChallenge(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	issuer := NewIssuer(store)
	ctx := context.Background()

	_, err := issuer.Issue(ctx, "sid-1")
	require.NoError(t, err)
	_, err = issuer.Issue(ctx, "sid-1")
	require.NoError(t, err)

	// Only the latest challenge can ever be answered: a single pending
	// answer is stored per session.
	d, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.NotEmpty(t, d.Captcha)
}

func TestIssuePreservesPrincipal(t *testing.T) {
	store := session.NewMemoryStore(time.Hour)
	issuer := NewIssuer(store)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sid-1", session.Data{Principal: "s1001", Realm: "student"}))

	_, err := issuer.Issue(ctx, "sid-1")
	require.NoError(t, err)

	d, err := store.Get(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, "s1001", d.Principal)
	assert.Equal(t, "student", d.Realm)
	assert.NotEmpty(t, d.Captcha)
}
