package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestGenerateSecureToken(t *testing.T) {
	a, err := GenerateSecureToken(16)
	require.NoError(t, err)
	b, err := GenerateSecureToken(16)
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)

	_, err = GenerateSecureToken(0)
	assert.Error(t, err)
}

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(6)
	require.NoError(t, err)
	assert.Regexp(t, `^[0-9]{6}$`, code)
}

func TestNormalizeDigits(t *testing.T) {
	assert.Equal(t, "0171234", NormalizeDigits("০১৭-১২ 34"))
	assert.Equal(t, "", NormalizeDigits("abc"))
}

func TestBuildFrontendLink(t *testing.T) {
	assert.Equal(t, "http://front.test/verify-email?token=abc", BuildFrontendLink("http://front.test/", "/verify-email", "abc"))
	assert.Equal(t, "http://localhost:5173/reset-password?token=x", BuildFrontendLink("", "reset-password", "x"))
}

func TestMaskEmail(t *testing.T) {
	assert.Equal(t, "r***m@e******.com", MaskEmail("rahim@example.com"))
	assert.Equal(t, "a*@e******.com", MaskEmail("ab@example.com"))
	assert.Equal(t, "not-an-email", MaskEmail("not-an-email"))
}

func TestIsDuplicateErr(t *testing.T) {
	assert.True(t, IsDuplicateErr(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicateErr(&mysql.MySQLError{Number: 1062}))
	assert.False(t, IsDuplicateErr(&mysql.MySQLError{Number: 1045}))
	assert.False(t, IsDuplicateErr(errors.New("boom")))
	assert.False(t, IsDuplicateErr(nil))
}

func TestMailer_UnconfiguredLogsInstead(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	m := &Mailer{Log: zap.New(core)}

	require.NoError(t, m.SendVerificationEmail("rahim@example.com", "রহিম", "http://front.test/verify-email?token=t"))
	require.NoError(t, m.SendPasswordResetEmail("rahim@example.com", "http://front.test/reset-password?token=r"))

	entries := logs.FilterMessage("[MOCK EMAIL]").All()
	require.Len(t, entries, 2)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "r***m@e******.com", ctx["to"])
	assert.Equal(t, "http://front.test/verify-email?token=t", ctx["link"])
}

func TestJSONEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	JSONSuccess(c, http.StatusOK, gin.H{"id": 1})
	assert.JSONEq(t, `{"success":true,"data":{"id":1}}`, w.Body.String())

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	AbortJSONError(c, http.StatusNotFound, "error.listingNotFound", "নেই")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.True(t, c.IsAborted())
	assert.JSONEq(t, `{"success":false,"error":{"code":"error.listingNotFound","message":"নেই"}}`, w.Body.String())
}
