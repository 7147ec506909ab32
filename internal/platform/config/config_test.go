package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func baseEnv() map[string]string {
	return map[string]string{
		"API_MONGO_URI":                  "mongodb://localhost:27017",
		"API_PSP_STRIPE_SECRET_KEY":      "sk_test_123",
		"API_PSP_STRIPE_PUBLISHABLE_KEY": "pk_test_123",
		"API_ADMIN_PASSWORD":             "admin123",
		"API_SESSION_SECRET":             "super-secret",
	}
}

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(WithEnvMap(baseEnv()), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "5003" {
		t.Errorf("expected default port 5003, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Mongo.Database != defaultMongoDatabase {
		t.Errorf("expected default database %s, got %s", defaultMongoDatabase, cfg.Mongo.Database)
	}
	if cfg.Storage.UploadDir != defaultUploadDir {
		t.Errorf("expected default upload dir %s, got %s", defaultUploadDir, cfg.Storage.UploadDir)
	}
	if cfg.PSP.Currency != "usd" {
		t.Errorf("expected default currency usd, got %s", cfg.PSP.Currency)
	}
	if cfg.Admin.Username != defaultAdminUsername {
		t.Errorf("expected default admin username, got %s", cfg.Admin.Username)
	}
	if cfg.Session.CookieName != defaultSessionName {
		t.Errorf("expected default cookie name, got %s", cfg.Session.CookieName)
	}
	if cfg.Session.MaxAge != defaultSessionMaxAge {
		t.Errorf("unexpected default session max age: %s", cfg.Session.MaxAge)
	}
	if cfg.Security.Environment != "local" {
		t.Errorf("expected default environment local, got %s", cfg.Security.Environment)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	env := baseEnv()
	env["API_SERVER_PORT"] = "9090"
	env["API_SERVER_READ_TIMEOUT"] = "20s"
	env["API_MONGO_DATABASE"] = "marketplace"
	env["API_MONGO_CONNECT_TIMEOUT"] = "3s"
	env["API_STORAGE_UPLOAD_DIR"] = "/var/lib/fotomart/uploads"
	env["API_STORAGE_PUBLIC_BASE_URL"] = "https://shop.example.com"
	env["API_PSP_CURRENCY"] = "EUR"
	env["API_MAIL_SENDGRID_API_KEY"] = "SG.test"
	env["API_MAIL_FROM_ADDRESS"] = "orders@example.com"
	env["API_ADMIN_USERNAME"] = "root"
	env["API_SESSION_COOKIE_NAME"] = "shop_admin"
	env["API_SESSION_MAX_AGE"] = "1h"
	env["API_SESSION_SECURE"] = "true"
	env["API_SECURITY_ENVIRONMENT"] = "PROD"

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 20*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Mongo.Database != "marketplace" {
		t.Errorf("unexpected mongo database: %s", cfg.Mongo.Database)
	}
	if cfg.Mongo.ConnectTimeout != 3*time.Second {
		t.Errorf("unexpected connect timeout: %s", cfg.Mongo.ConnectTimeout)
	}
	if cfg.Storage.PublicBaseURL != "https://shop.example.com" {
		t.Errorf("unexpected public base url: %s", cfg.Storage.PublicBaseURL)
	}
	if cfg.PSP.Currency != "eur" {
		t.Errorf("expected currency lowered to eur, got %s", cfg.PSP.Currency)
	}
	if cfg.Admin.Username != "root" {
		t.Errorf("unexpected admin username: %s", cfg.Admin.Username)
	}
	if cfg.Session.MaxAge != time.Hour {
		t.Errorf("unexpected session max age: %s", cfg.Session.MaxAge)
	}
	if !cfg.Session.Secure {
		t.Errorf("expected secure session cookie")
	}
	if cfg.Security.Environment != "prod" {
		t.Errorf("expected environment lowered to prod, got %s", cfg.Security.Environment)
	}
}

func TestLoadValidationError(t *testing.T) {
	_, err := Load(WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err == nil {
		t.Fatal("expected validation error")
	}

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}

	fields := validation.Fields()
	want := map[string]bool{
		"Mongo.URI":                false,
		"PSP.StripeSecretKey":      false,
		"PSP.StripePublishableKey": false,
		"Admin.Password":           false,
		"Session.Secret":           false,
	}
	for _, field := range fields {
		if _, ok := want[field]; ok {
			want[field] = true
		}
	}
	for field, seen := range want {
		if !seen {
			t.Errorf("expected %s reported missing, got %v", field, fields)
		}
	}
}

func TestLoadReadsDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	content := "API_MONGO_URI=mongodb://dotenv:27017\n" +
		"export API_SERVER_PORT=7001\n" +
		"# comment\n" +
		"API_PSP_STRIPE_SECRET_KEY=\"sk_file\"\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	env := map[string]string{
		"API_PSP_STRIPE_PUBLISHABLE_KEY": "pk_test_123",
		"API_ADMIN_PASSWORD":             "admin123",
		"API_SESSION_SECRET":             "super-secret",
	}

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Mongo.URI != "mongodb://dotenv:27017" {
		t.Errorf("expected mongo uri from dotenv, got %s", cfg.Mongo.URI)
	}
	if cfg.Server.Port != "7001" {
		t.Errorf("expected port from dotenv export line, got %s", cfg.Server.Port)
	}
	if cfg.PSP.StripeSecretKey != "sk_file" {
		t.Errorf("expected quoted dotenv value unwrapped, got %s", cfg.PSP.StripeSecretKey)
	}
}

func TestEnvMapTakesPrecedenceOverDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("API_SERVER_PORT=1111\n"), 0o600); err != nil {
		t.Fatalf("failed writing env file: %v", err)
	}

	env := baseEnv()
	env["API_SERVER_PORT"] = "2222"

	cfg, err := Load(WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(envPath))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "2222" {
		t.Errorf("expected env map to win over dotenv, got %s", cfg.Server.Port)
	}
}
