package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/giftcard-next/internal/config"
	"github.com/giftcard-next/internal/models"
	"github.com/giftcard-next/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthServiceTest(t *testing.T) (*AuthService, repository.AdminRepository) {
	t.Helper()
	dsn := fmt.Sprintf("file:auth_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Admin{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key-for-auth-service"
	cfg.JWT.ExpireHours = 2
	cfg.Security.PasswordPolicy = config.PasswordPolicyConfig{
		MinLength:     8,
		RequireUpper:  true,
		RequireLower:  true,
		RequireNumber: true,
	}
	adminRepo := repository.NewAdminRepository(db)
	return NewAuthService(cfg, adminRepo), adminRepo
}

func createTestAdmin(t *testing.T, svc *AuthService, repo repository.AdminRepository, username, password string) *models.Admin {
	t.Helper()
	hash, err := svc.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	admin := &models.Admin{Username: username, PasswordHash: hash}
	if err := repo.Create(admin); err != nil {
		t.Fatalf("create admin failed: %v", err)
	}
	return admin
}

func TestAuthServiceLoginAndJWTRoundTrip(t *testing.T) {
	svc, repo := setupAuthServiceTest(t)
	createTestAdmin(t, svc, repo, "admin", "Passw0rd!")

	admin, token, expiresAt, err := svc.Login("admin", "Passw0rd!")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token == "" || !expiresAt.After(time.Now()) {
		t.Fatalf("expected token with future expiry")
	}
	if admin.LastLoginAt == nil {
		t.Fatalf("expected last login stamped")
	}

	claims, err := svc.ParseJWT(token)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if claims.AdminID != admin.ID || claims.Username != "admin" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.TokenVersion != admin.TokenVersion {
		t.Fatalf("expected token version %d, got %d", admin.TokenVersion, claims.TokenVersion)
	}

	if _, _, _, err := svc.Login("admin", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, _, err := svc.Login("ghost", "Passw0rd!"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown admin, got %v", err)
	}
}

func TestAuthServiceParseJWTRejectsTampered(t *testing.T) {
	svc, repo := setupAuthServiceTest(t)
	admin := createTestAdmin(t, svc, repo, "admin", "Passw0rd!")

	token, _, err := svc.GenerateJWT(admin)
	if err != nil {
		t.Fatalf("generate token failed: %v", err)
	}
	if _, err := svc.ParseJWT(token + "x"); err == nil {
		t.Fatalf("expected tampered token rejected")
	}
	if _, err := svc.ParseJWT("not-a-jwt"); err == nil {
		t.Fatalf("expected malformed token rejected")
	}
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo := setupAuthServiceTest(t)
	admin := createTestAdmin(t, svc, repo, "admin", "Passw0rd!")
	before := admin.TokenVersion

	if err := svc.ChangePassword(admin.ID, "wrong", "NewPassw0rd"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
	// 新密码不满足策略
	if err := svc.ChangePassword(admin.ID, "Passw0rd!", "short"); !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if err := svc.ChangePassword(admin.ID, "Passw0rd!", "NewPassw0rd1"); err != nil {
		t.Fatalf("change password failed: %v", err)
	}

	updated, err := repo.GetByID(admin.ID)
	if err != nil {
		t.Fatalf("reload admin failed: %v", err)
	}
	if err := svc.VerifyPassword(updated.PasswordHash, "NewPassw0rd1"); err != nil {
		t.Fatalf("expected new password to verify: %v", err)
	}
	// 改密后旧 Token 全量失效
	if updated.TokenVersion != before+1 {
		t.Fatalf("expected token version bumped, got %d", updated.TokenVersion)
	}
	if updated.TokenInvalidBefore == nil {
		t.Fatalf("expected token invalid-before stamped")
	}
}

func TestValidatePasswordPolicy(t *testing.T) {
	policy := config.PasswordPolicyConfig{
		MinLength:      10,
		RequireUpper:   true,
		RequireLower:   true,
		RequireNumber:  true,
		RequireSpecial: true,
	}

	cases := []struct {
		password string
		ok       bool
	}{
		{"Aa1!aaaaaa", true},
		{"Aa1!a", false},        // 长度不足
		{"aa1!aaaaaa", false},   // 缺大写
		{"AA1!AAAAAA", false},   // 缺小写
		{"Aaa!aaaaaa", false},   // 缺数字
		{"Aa1aaaaaaa", false},   // 缺特殊字符
	}
	for _, tc := range cases {
		err := validatePassword(policy, tc.password)
		if tc.ok && err != nil {
			t.Fatalf("expected %q accepted, got %v", tc.password, err)
		}
		if !tc.ok && !errors.Is(err, ErrWeakPassword) {
			t.Fatalf("expected %q rejected with ErrWeakPassword, got %v", tc.password, err)
		}
	}

	// 空策略不做校验
	if err := validatePassword(config.PasswordPolicyConfig{}, "x"); err != nil {
		t.Fatalf("expected empty policy to accept anything, got %v", err)
	}
}
