package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	sc "github.com/dmitrijs2005/gophhabits/internal/server/config"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophhabits/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

var testNow = time.Date(2025, 6, 15, 8, 0, 0, 0, time.UTC)

type fakePutter struct {
	mu     sync.Mutex
	err    error
	bucket string
	key    string
	body   []byte
	calls  int
}

func (f *fakePutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakePutter) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePresigner struct {
	err error
}

func (f *fakePresigner) PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	var po s3.PresignOptions
	for _, fn := range optFns {
		fn(&po)
	}
	if po.Expires != presignExpiry {
		return nil, errors.New("unexpected expiry")
	}
	return &v4.PresignedHTTPRequest{URL: "http://minio.local/" + aws.ToString(in.Bucket) + "/" + aws.ToString(in.Key) + "?sig=1"}, nil
}

func testConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.S3Bucket = "habits-test"
	return cfg
}

type fixture struct {
	svc    *Service
	habits *services.HabitService
	put    *fakePutter
	pre    *fakePresigner
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	dsn := "file:backup_" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := dbx.Open(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rm := repomanager.NewSQLRepositoryManager()
	require.NoError(t, rm.RunMigrations(ctx, db))

	clock := datex.FixedClock(testNow)
	f := &fixture{
		svc:    NewService(db, rm, testConfig(), clock, logging.NewNop()),
		habits: services.NewHabitService(db, rm, clock, time.UTC, logging.NewNop()),
		put:    &fakePutter{},
		pre:    &fakePresigner{},
	}
	f.svc.clients = func(context.Context) (objectPutter, getPresigner, error) { return f.put, f.pre, nil }
	return f
}

// --- tests ---

func TestStorageKey(t *testing.T) {
	key := StorageKey(time.Date(2025, 3, 7, 23, 0, 0, 0, time.FixedZone("X", -2*3600)))
	assert.Regexp(t, regexp.MustCompile(`^backups/2025/03/08/[0-9a-f-]{36}\.json$`), key)
}

func TestSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	empty, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, SnapshotVersion, empty.Version)
	assert.Empty(t, empty.Habits)

	h, err := f.habits.Create(ctx, "Read", nil)
	require.NoError(t, err)
	_, err = f.habits.MarkCompletion(ctx, h.ID, datex.MustParse("2025-06-14"))
	require.NoError(t, err)
	_, err = f.habits.MarkCompletion(ctx, h.ID, datex.MustParse("2025-06-12"))
	require.NoError(t, err)
	reason := "trip"
	_, err = f.habits.MarkAbsence(ctx, h.ID, datex.MustParse("2025-06-13"), &reason)
	require.NoError(t, err)

	snap, err := f.svc.Snapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Habits, 1)

	rec := snap.Habits[0]
	assert.Equal(t, h.ID, rec.ID)
	assert.Equal(t, []datex.Date{datex.MustParse("2025-06-12"), datex.MustParse("2025-06-14")}, rec.Completions)
	require.Len(t, rec.Absences, 1)
	assert.Equal(t, "trip", *rec.Absences[0].Reason)
}

func TestCreate_UploadsAndPresigns(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.habits.Create(ctx, "Read", nil)
	require.NoError(t, err)

	key, url, err := f.svc.Create(ctx)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "backups/2025/06/15/"))
	assert.Equal(t, "habits-test", f.put.bucket)
	assert.Equal(t, key, f.put.key)
	assert.Contains(t, url, key)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(f.put.body, &snap))
	assert.Equal(t, SnapshotVersion, snap.Version)
	require.Len(t, snap.Habits, 1)
	assert.Equal(t, "Read", snap.Habits[0].Name)
}

func TestCreate_Errors(t *testing.T) {
	t.Run("put fails", func(t *testing.T) {
		f := setup(t)
		f.put.err = errors.New("access denied")
		_, _, err := f.svc.Create(context.Background())
		assert.ErrorContains(t, err, "access denied")
	})

	t.Run("presign fails", func(t *testing.T) {
		f := setup(t)
		f.pre.err = errors.New("bad creds")
		_, _, err := f.svc.Create(context.Background())
		assert.ErrorContains(t, err, "bad creds")
	})

	t.Run("client fails", func(t *testing.T) {
		f := setup(t)
		f.svc.clients = func(context.Context) (objectPutter, getPresigner, error) {
			return nil, nil, errors.New("no region")
		}
		_, _, err := f.svc.Create(context.Background())
		assert.ErrorContains(t, err, "no region")
	})
}

func TestRunPeriodic(t *testing.T) {
	f := setup(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.RunPeriodic(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return f.put.Calls() >= 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}

	// zero interval returns immediately
	f.svc.RunPeriodic(context.Background(), 0)
}

func Test_s3Clients_AppliesConfig(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewS3 := newS3ClientFromConfig
	origNewPre := newS3PresignClient
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
		newS3PresignClient = origNewPre
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			if err := fn(&lo); err != nil {
				t.Fatalf("load options fn error: %v", err)
			}
		}
		if lo.Region != "us-east-1" {
			t.Fatalf("region not applied: %q", lo.Region)
		}
		if lo.Credentials == nil {
			t.Fatal("credentials not applied")
		}
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	presignCalled := false
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		presignCalled = true
		return &s3.PresignClient{}
	}

	svc := NewService(nil, nil, testConfig(), datex.SystemClock{}, logging.NewNop())
	put, pre, err := svc.s3Clients(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, put)
	assert.NotNil(t, pre)
	assert.True(t, presignCalled)
	assert.Equal(t, "http://127.0.0.1:9000/", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load failed")
	}
	_, _, err = svc.s3Clients(context.Background())
	assert.ErrorContains(t, err, "load failed")
}
