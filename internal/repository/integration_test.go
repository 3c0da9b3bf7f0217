package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"aidesk/internal/database"
	"aidesk/internal/models"
)

// setupTestDB creates a throwaway SQLite database with migrations applied
func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	dbPath := t.Name() + ".db"
	t.Cleanup(func() { os.Remove(dbPath) })

	db, err := database.Initialize(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(context.Background(), "../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return db
}

func testAccount() *models.Account {
	return &models.Account{
		AccountID: "acct_0123456789abcdef01234567",
		Name:      "Test Workspace",
		Plan:      models.PlanFree,
	}
}

func testUser(email string) *models.User {
	return &models.User{
		Email:        email,
		PasswordHash: "$2a$12$notarealhashnotarealhashnotarealhashnotare",
		Name:         "Test User",
		Role:         models.RoleOwner,
	}
}

func testSession(digest string) *models.Session {
	return &models.Session{
		TokenDigest: digest,
		UserAgent:   "go-test",
		IPAddress:   "127.0.0.1",
		ExpiresAt:   time.Now().Add(time.Hour),
	}
}

func TestProvisionWithOwner(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	accountRepo := NewAccountRepository(db)
	userRepo := NewUserRepository(db)

	account := testAccount()
	user := testUser("owner@example.com")
	session := testSession("digest-provision")

	if err := accountRepo.ProvisionWithOwner(ctx, account, user, session); err != nil {
		t.Fatalf("ProvisionWithOwner failed: %v", err)
	}
	if account.ID == 0 || user.ID == 0 || session.ID == 0 {
		t.Errorf("Expected backfilled IDs, got account=%d user=%d session=%d", account.ID, user.ID, session.ID)
	}
	if user.AccountID != account.ID {
		t.Errorf("Expected user linked to account %d, got %d", account.ID, user.AccountID)
	}

	found, err := userRepo.GetByEmail(ctx, "owner@example.com")
	if err != nil {
		t.Fatalf("GetByEmail failed: %v", err)
	}
	if found == nil {
		t.Fatal("Expected user after provisioning, got nil")
	}
	if found.Role != models.RoleOwner {
		t.Errorf("Expected role %s, got %s", models.RoleOwner, found.Role)
	}
}

func TestProvisionWithOwnerDuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	accountRepo := NewAccountRepository(db)

	first := testAccount()
	if err := accountRepo.ProvisionWithOwner(ctx, first, testUser("taken@example.com"), testSession("digest-a")); err != nil {
		t.Fatalf("First provision failed: %v", err)
	}

	second := testAccount()
	second.AccountID = "acct_fedcba9876543210fedcba98"
	err := accountRepo.ProvisionWithOwner(ctx, second, testUser("taken@example.com"), testSession("digest-b"))
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// The losing transaction must leave no account behind
	orphan, err := accountRepo.GetByAccountID(ctx, second.AccountID)
	if err != nil {
		t.Fatalf("GetByAccountID failed: %v", err)
	}
	if orphan != nil {
		t.Errorf("Expected no account after failed provision, got id=%d", orphan.ID)
	}
}

func TestSessionLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	accountRepo := NewAccountRepository(db)
	sessionRepo := NewSessionRepository(db)

	user := testUser("sessions@example.com")
	if err := accountRepo.ProvisionWithOwner(ctx, testAccount(), user, testSession("digest-initial")); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	second := testSession("digest-second")
	second.UserID = user.ID
	if err := sessionRepo.Create(ctx, second); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	found, err := sessionRepo.GetByTokenDigest(ctx, "digest-second")
	if err != nil {
		t.Fatalf("GetByTokenDigest failed: %v", err)
	}
	if found == nil || found.UserID != user.ID {
		t.Fatalf("Expected session for user %d, got %+v", user.ID, found)
	}

	if err := sessionRepo.DeleteAllForUserExcept(ctx, user.ID, "digest-second"); err != nil {
		t.Fatalf("DeleteAllForUserExcept failed: %v", err)
	}
	gone, err := sessionRepo.GetByTokenDigest(ctx, "digest-initial")
	if err != nil {
		t.Fatalf("GetByTokenDigest failed: %v", err)
	}
	if gone != nil {
		t.Error("Expected initial session to be revoked")
	}
	kept, err := sessionRepo.GetByTokenDigest(ctx, "digest-second")
	if err != nil {
		t.Fatalf("GetByTokenDigest failed: %v", err)
	}
	if kept == nil {
		t.Error("Expected second session to survive")
	}

	// Deleting an already-deleted session is not an error
	if err := sessionRepo.DeleteByTokenDigest(ctx, "digest-initial"); err != nil {
		t.Errorf("Idempotent delete failed: %v", err)
	}
}

func TestResetSupersedeAndConsume(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	accountRepo := NewAccountRepository(db)
	userRepo := NewUserRepository(db)
	resetRepo := NewResetRepository(db)

	user := testUser("reset@example.com")
	if err := accountRepo.ProvisionWithOwner(ctx, testAccount(), user, testSession("digest-reset")); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	first := &models.PasswordResetRequest{TokenDigest: "reset-digest-1", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := resetRepo.Supersede(ctx, first); err != nil {
		t.Fatalf("Supersede failed: %v", err)
	}

	second := &models.PasswordResetRequest{TokenDigest: "reset-digest-2", UserID: user.ID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := resetRepo.Supersede(ctx, second); err != nil {
		t.Fatalf("Second supersede failed: %v", err)
	}

	// Superseded token is gone
	stale, err := resetRepo.GetByTokenDigest(ctx, "reset-digest-1")
	if err != nil {
		t.Fatalf("GetByTokenDigest failed: %v", err)
	}
	if stale != nil {
		t.Error("Expected superseded request to be deleted")
	}

	userID, err := resetRepo.ConsumeAndSetPassword(ctx, "reset-digest-2", "new-hash")
	if err != nil {
		t.Fatalf("ConsumeAndSetPassword failed: %v", err)
	}
	if userID != user.ID {
		t.Errorf("Expected user id %d, got %d", user.ID, userID)
	}

	updated, err := userRepo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if updated.PasswordHash != "new-hash" {
		t.Errorf("Expected password hash to be replaced, got %q", updated.PasswordHash)
	}

	// Second consume of the same token must lose
	if _, err := resetRepo.ConsumeAndSetPassword(ctx, "reset-digest-2", "another-hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound on reuse, got %v", err)
	}
}

func TestConsumeExpiredReset(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	accountRepo := NewAccountRepository(db)
	resetRepo := NewResetRepository(db)

	user := testUser("expired@example.com")
	if err := accountRepo.ProvisionWithOwner(ctx, testAccount(), user, testSession("digest-expired")); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	expired := &models.PasswordResetRequest{TokenDigest: "reset-expired", UserID: user.ID, ExpiresAt: time.Now().Add(-time.Minute)}
	if err := resetRepo.Supersede(ctx, expired); err != nil {
		t.Fatalf("Supersede failed: %v", err)
	}

	if _, err := resetRepo.ConsumeAndSetPassword(ctx, "reset-expired", "new-hash"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Expected ErrNotFound for expired request, got %v", err)
	}
}
