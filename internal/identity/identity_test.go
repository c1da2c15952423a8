package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	svix "github.com/svix/svix-webhooks/go"

	"careerDesk/internal/database"
	"careerDesk/internal/database/dbtest"
	"careerDesk/internal/errcode"
)

var testWebhookSecret = "whsec_" + base64.StdEncoding.EncodeToString([]byte("careerdesk-test-webhook-secret!!"))

func signedHeaders(t *testing.T, payload []byte) http.Header {
	t.Helper()
	wh, err := svix.NewWebhook(testWebhookSecret)
	require.NoError(t, err)

	now := time.Now()
	sig, err := wh.Sign("msg_1", now, payload)
	require.NoError(t, err)

	h := http.Header{}
	h.Set("svix-id", "msg_1")
	h.Set("svix-timestamp", strconv.FormatInt(now.Unix(), 10))
	h.Set("svix-signature", sig)
	return h
}

func TestResolverFindsAndCachesUsers(t *testing.T) {
	db := dbtest.Open(t)
	seeded := dbtest.SeedUser(t, db, "user_1")
	r := NewResolver(db, time.Minute)
	ctx := context.Background()

	u, err := r.Resolve(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)

	// 删除后仍命中缓存
	require.NoError(t, db.Where("id = ?", seeded.ID).Delete(&database.User{}).Error)
	u, err = r.Resolve(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, seeded.ID, u.ID)

	r.Forget("user_1")
	_, err = r.Resolve(ctx, "user_1")
	assert.True(t, errcode.Is(err, errcode.KindNotFound))
}

func TestResolverRejectsBlankIdentity(t *testing.T) {
	r := NewResolver(dbtest.Open(t), 0)
	_, err := r.Resolve(context.Background(), "  ")
	assert.True(t, errcode.Is(err, errcode.KindBadRequest))
}

func TestWebhookProvisionsUserOnce(t *testing.T) {
	db := dbtest.Open(t)
	verifier, err := NewVerifier(testWebhookSecret)
	require.NoError(t, err)
	provisioner := NewProvisioner(db)

	payload := []byte(`{"type":"user.created","data":{"id":"user_42","email_addresses":[{"email_address":"ada@example.com"}],"first_name":"Ada","last_name":null}}`)

	evt, err := verifier.Verify(payload, signedHeaders(t, payload))
	require.NoError(t, err)

	created, err := provisioner.Handle(context.Background(), evt)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = provisioner.Handle(context.Background(), evt)
	require.NoError(t, err)
	assert.False(t, created)

	var users []database.User
	require.NoError(t, db.Where("identity_id = ?", "user_42").Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, "ada@example.com", users[0].Email)
	assert.Equal(t, "Ada", users[0].FirstName)
	assert.Empty(t, users[0].LastName)
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	db := dbtest.Open(t)
	created, err := NewProvisioner(db).Handle(context.Background(), &Event{Type: "user.updated", Data: EventUser{ID: "user_9"}})
	require.NoError(t, err)
	assert.False(t, created)

	var count int64
	require.NoError(t, db.Model(&database.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	verifier, err := NewVerifier(testWebhookSecret)
	require.NoError(t, err)

	payload := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(t, payload)

	_, err = verifier.Verify([]byte(`{"type":"user.created","data":{"id":"user_2"}}`), headers)
	assert.True(t, errcode.Is(err, errcode.KindBadRequest))
}

func TestSessionVerifierChecksSignatureAndSubject(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	pemKey := string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))

	v, err := NewSessionVerifier(pemKey)
	require.NoError(t, err)
	require.NotNil(t, v)

	token, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "user_7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString(key)
	require.NoError(t, err)

	sub, err := v.Subject(token)
	require.NoError(t, err)
	assert.Equal(t, "user_7", sub)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.RegisteredClaims{
		Subject:   "user_7",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString(key)
	require.NoError(t, err)
	_, err = v.Subject(expired)
	assert.Error(t, err)

	hmacToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user_7"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = v.Subject(hmacToken)
	assert.Error(t, err)
}

func TestSessionVerifierDisabledWithoutKey(t *testing.T) {
	v, err := NewSessionVerifier("")
	require.NoError(t, err)
	assert.Nil(t, v)
}
