package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/krishkalaria12/label-ledger/config"
	"github.com/krishkalaria12/label-ledger/imagestore"
	"github.com/krishkalaria12/label-ledger/ledger"
	"github.com/krishkalaria12/label-ledger/models"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testPolicy = config.Policy{
	FeePerImageCents:     100,
	FeePerLabelCents:     10,
	RewardPerLabelCents:  200,
	StartingBalanceCents: 10000,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Image{},
		&models.CandidateLabel{},
		&models.Annotation{},
		&models.LabelRecord{},
		&models.UploadRecord{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestUser(t *testing.T, db *gorm.DB, name, role string, balanceCents int64) *models.User {
	t.Helper()

	user := &models.User{
		Email:        name + "@example.com",
		Username:     name,
		FullName:     name,
		Password:     "irrelevant",
		Role:         role,
		BalanceCents: balanceCents,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()

	var n int64
	if err := db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestUploadBatchDebitsCostAndRecordsHistory(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	w := NewUploader(db, testPolicy)

	items := []UploadItem{
		{Key: "a.jpg", PayloadRef: "ref-a"},
		{Key: "b.jpg", PayloadRef: "ref-b"},
	}
	labels := []string{"cat", "dog", "bird"}

	// 2 images at 1.00 each plus 6 label attachments (3 labels on each of
	// 2 images) at 0.10 each: 260 cents.
	result, err := w.Submit(context.Background(), uploader.ID, items, labels)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if result.CostCents != 260 {
		t.Fatalf("cost = %d cents, want 260", result.CostCents)
	}
	if result.NewBalanceCents != 9740 {
		t.Fatalf("new balance = %d cents, want 9740", result.NewBalanceCents)
	}
	if len(result.ImageIDs) != 2 {
		t.Fatalf("committed %d images, want 2", len(result.ImageIDs))
	}

	if n := countRows(t, db, &models.Image{}); n != 2 {
		t.Fatalf("image records = %d, want 2", n)
	}

	history, err := ledger.New(db).UploadHistory(context.Background(), uploader.ID)
	if err != nil {
		t.Fatalf("UploadHistory returned error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("upload history has %d entries, want 2", len(history))
	}
}

func TestUploadRejectedWhenBalanceTooLow(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 1000)
	w := NewUploader(db, testPolicy)

	items := make([]UploadItem, 200)
	for i := range items {
		items[i] = UploadItem{Key: fmt.Sprintf("img-%03d.jpg", i), PayloadRef: "ref"}
	}

	_, err := w.Submit(context.Background(), uploader.ID, items, nil)
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("Submit returned %v, want ErrInsufficientFunds", err)
	}

	// Nothing may have been committed: no images, no history, full balance.
	if n := countRows(t, db, &models.Image{}); n != 0 {
		t.Fatalf("image records after rejected batch = %d, want 0", n)
	}
	if n := countRows(t, db, &models.UploadRecord{}); n != 0 {
		t.Fatalf("upload history after rejected batch = %d, want 0", n)
	}
	account, err := ledger.New(db).GetAccount(context.Background(), uploader.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if account.BalanceCents != 1000 {
		t.Fatalf("balance after rejected batch = %d, want 1000", account.BalanceCents)
	}
}

func TestUploadRetryIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	w := NewUploader(db, testPolicy)

	items := []UploadItem{{Key: "a.jpg", PayloadRef: "ref-a"}}

	if _, err := w.Submit(context.Background(), uploader.ID, items, []string{"cat", "dog"}); err != nil {
		t.Fatalf("first Submit returned error: %v", err)
	}
	// Retried submission with the same key and overlapping labels.
	if _, err := w.Submit(context.Background(), uploader.ID, items, []string{"dog", "bird"}); err != nil {
		t.Fatalf("second Submit returned error: %v", err)
	}

	if n := countRows(t, db, &models.Image{}); n != 1 {
		t.Fatalf("image records = %d, want 1 (merged)", n)
	}
	if n := countRows(t, db, &models.CandidateLabel{}); n != 3 {
		t.Fatalf("candidate labels = %d, want union of 3", n)
	}
}

func TestUploadEmptyBatchRejected(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	w := NewUploader(db, testPolicy)

	if _, err := w.Submit(context.Background(), uploader.ID, nil, []string{"cat"}); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("Submit returned %v, want ErrEmptyBatch", err)
	}
}

func TestLabelingCreditsRewardOnce(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	viewer := newTestUser(t, db, "bob", models.RoleViewer, 0)

	up := NewUploader(db, testPolicy)
	upload, err := up.Submit(context.Background(), uploader.ID, []UploadItem{{Key: "a.jpg", PayloadRef: "ref-a"}}, []string{"cat", "dog"})
	if err != nil {
		t.Fatalf("upload Submit returned error: %v", err)
	}
	imageID := upload.ImageIDs[0]

	w := NewLabeler(db, testPolicy)
	result, err := w.Submit(context.Background(), viewer.ID, imageID, "cat")
	if err != nil {
		t.Fatalf("label Submit returned error: %v", err)
	}
	if result.AlreadyLabeled {
		t.Fatal("first completion reported AlreadyLabeled")
	}
	if result.NewBalanceCents != 200 {
		t.Fatalf("balance after reward = %d cents, want 200", result.NewBalanceCents)
	}

	history, err := ledger.New(db).LabelHistory(context.Background(), viewer.ID)
	if err != nil {
		t.Fatalf("LabelHistory returned error: %v", err)
	}
	if len(history) != 1 || history[0].Label != "cat" || history[0].PayloadRef != "ref-a" {
		t.Fatalf("label history = %+v, want one cat entry with the image payload", history)
	}

	// Repeated confirmation: no second credit, no second history entry.
	again, err := w.Submit(context.Background(), viewer.ID, imageID, "cat")
	if err != nil {
		t.Fatalf("repeated Submit returned error: %v", err)
	}
	if !again.AlreadyLabeled {
		t.Fatal("repeated completion did not report AlreadyLabeled")
	}
	if again.NewBalanceCents != 200 {
		t.Fatalf("balance after repeat = %d cents, want unchanged 200", again.NewBalanceCents)
	}
	if n := countRows(t, db, &models.LabelRecord{}); n != 1 {
		t.Fatalf("label history rows = %d, want 1", n)
	}
	if n := countRows(t, db, &models.Annotation{}); n != 1 {
		t.Fatalf("annotation rows = %d, want 1", n)
	}
}

func TestLabelingRejectsUnknownLabel(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	viewer := newTestUser(t, db, "bob", models.RoleViewer, 0)

	up := NewUploader(db, testPolicy)
	upload, err := up.Submit(context.Background(), uploader.ID, []UploadItem{{Key: "a.jpg", PayloadRef: "ref-a"}}, []string{"cat"})
	if err != nil {
		t.Fatalf("upload Submit returned error: %v", err)
	}

	w := NewLabeler(db, testPolicy)
	if _, err := w.Submit(context.Background(), viewer.ID, upload.ImageIDs[0], "giraffe"); !errors.Is(err, imagestore.ErrInvalidLabel) {
		t.Fatalf("Submit returned %v, want ErrInvalidLabel", err)
	}

	account, err := ledger.New(db).GetAccount(context.Background(), viewer.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if account.BalanceCents != 0 {
		t.Fatalf("balance after rejected label = %d, want 0", account.BalanceCents)
	}
}

func TestConcurrentSameUserCompletionCreditsOnce(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	viewer := newTestUser(t, db, "bob", models.RoleViewer, 0)

	up := NewUploader(db, testPolicy)
	upload, err := up.Submit(context.Background(), uploader.ID, []UploadItem{{Key: "a.jpg", PayloadRef: "ref-a"}}, []string{"cat"})
	if err != nil {
		t.Fatalf("upload Submit returned error: %v", err)
	}
	imageID := upload.ImageIDs[0]

	w := NewLabeler(db, testPolicy)
	const attempts = 6
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Errors other than the no-op path would show up in the
			// final balance assertion.
			_, _ = w.Submit(context.Background(), viewer.ID, imageID, "cat")
		}()
	}
	wg.Wait()

	account, err := ledger.New(db).GetAccount(context.Background(), viewer.ID)
	if err != nil {
		t.Fatalf("GetAccount returned error: %v", err)
	}
	if account.BalanceCents != 200 {
		t.Fatalf("balance after concurrent confirmations = %d, want exactly one reward of 200", account.BalanceCents)
	}
	if n := countRows(t, db, &models.Annotation{}); n != 1 {
		t.Fatalf("annotation rows = %d, want 1", n)
	}
}

func TestConcurrentDistinctViewersBothRewarded(t *testing.T) {
	db := newTestDB(t)
	uploader := newTestUser(t, db, "alice", models.RoleUploader, 10000)
	bob := newTestUser(t, db, "bob", models.RoleViewer, 0)
	carol := newTestUser(t, db, "carol", models.RoleViewer, 0)

	up := NewUploader(db, testPolicy)
	upload, err := up.Submit(context.Background(), uploader.ID, []UploadItem{{Key: "a.jpg", PayloadRef: "ref-a"}}, []string{"cat", "dog"})
	if err != nil {
		t.Fatalf("upload Submit returned error: %v", err)
	}
	imageID := upload.ImageIDs[0]

	w := NewLabeler(db, testPolicy)
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, viewer := range []*models.User{bob, carol} {
		wg.Add(1)
		go func(i int, userID uint) {
			defer wg.Done()
			_, errs[i] = w.Submit(context.Background(), userID, imageID, "cat")
		}(i, viewer.ID)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("completion %d returned error: %v", i, err)
		}
	}

	if n := countRows(t, db, &models.Annotation{}); n != 2 {
		t.Fatalf("annotation rows = %d, want 2", n)
	}
	for _, viewer := range []*models.User{bob, carol} {
		account, err := ledger.New(db).GetAccount(context.Background(), viewer.ID)
		if err != nil {
			t.Fatalf("GetAccount returned error: %v", err)
		}
		if account.BalanceCents != 200 {
			t.Fatalf("%s balance = %d, want 200", viewer.Username, account.BalanceCents)
		}
	}
}
