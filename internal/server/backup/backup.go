// Package backup exports every habit with its records as a JSON snapshot to
// S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophhabits/internal/datex"
	"github.com/dmitrijs2005/gophhabits/internal/dbx"
	"github.com/dmitrijs2005/gophhabits/internal/logging"
	sc "github.com/dmitrijs2005/gophhabits/internal/server/config"
	"github.com/dmitrijs2005/gophhabits/internal/server/metrics"
	"github.com/dmitrijs2005/gophhabits/internal/server/models"
	"github.com/dmitrijs2005/gophhabits/internal/server/repositories/repomanager"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// SnapshotVersion is bumped whenever the snapshot layout changes.
const SnapshotVersion = 1

const presignExpiry = 15 * time.Minute

type Snapshot struct {
	Version   int           `json:"version"`
	CreatedAt time.Time     `json:"created_at"`
	Habits    []HabitRecord `json:"habits"`
}

type HabitRecord struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Completions []datex.Date    `json:"completions"`
	Absences    []AbsenceRecord `json:"absences"`
}

type AbsenceRecord struct {
	Date   datex.Date `json:"date"`
	Reason *string    `json:"reason"`
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type getPresigner interface {
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// seams for tests
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
	newS3PresignClient    = func(c *s3.Client) *s3.PresignClient { return s3.NewPresignClient(c) }
)

type Service struct {
	db          *sqlx.DB
	repomanager repomanager.RepositoryManager
	config      *sc.Config
	clock       datex.Clock
	logger      logging.Logger

	clients func(ctx context.Context) (objectPutter, getPresigner, error)
}

func NewService(db *sqlx.DB, m repomanager.RepositoryManager, cfg *sc.Config, clock datex.Clock, l logging.Logger) *Service {
	s := &Service{
		db:          db,
		repomanager: m,
		config:      cfg,
		clock:       clock,
		logger:      l.With("module", "backup"),
	}
	s.clients = s.s3Clients
	return s
}

func (s *Service) s3Clients(ctx context.Context) (objectPutter, getPresigner, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(s.config.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3RootUser,
			s.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		// MinIO serves buckets under the path, not as subdomains
		o.UsePathStyle = true
	})

	return client, newS3PresignClient(client), nil
}

// StorageKey names a new snapshot object.
func StorageKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("backups/%04d/%02d/%02d/%v.json", t.Year(), t.Month(), t.Day(), uuid.New())
}

// Snapshot reads every habit with its completions and absences in a single
// transaction.
func (s *Service) Snapshot(ctx context.Context) (*Snapshot, error) {

	snap := &Snapshot{
		Version:   SnapshotVersion,
		CreatedAt: s.clock.Now().UTC(),
		Habits:    []HabitRecord{},
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		habits, err := s.repomanager.Habits(tx).List(ctx)
		if err != nil {
			return err
		}

		for _, h := range habits {
			rec, err := s.habitRecord(ctx, tx, h)
			if err != nil {
				return err
			}
			snap.Habits = append(snap.Habits, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error reading snapshot: %w", err)
	}

	return snap, nil
}

func (s *Service) habitRecord(ctx context.Context, tx dbx.DBTX, h *models.Habit) (HabitRecord, error) {
	rec := HabitRecord{
		ID:          h.ID,
		Name:        h.Name,
		Description: h.Description,
		CreatedAt:   h.CreatedAt,
		UpdatedAt:   h.UpdatedAt,
		Completions: []datex.Date{},
		Absences:    []AbsenceRecord{},
	}

	completions, err := s.repomanager.Completions(tx).List(ctx, h.ID, models.DateRange{})
	if err != nil {
		return rec, err
	}
	for _, c := range completions {
		rec.Completions = append(rec.Completions, c.Date)
	}

	absences, err := s.repomanager.Absences(tx).List(ctx, h.ID, models.DateRange{})
	if err != nil {
		return rec, err
	}
	for _, a := range absences {
		rec.Absences = append(rec.Absences, AbsenceRecord{Date: a.Date, Reason: a.Reason})
	}

	return rec, nil
}

// Create takes a snapshot, uploads it and returns the object key with a
// presigned download URL.
func (s *Service) Create(ctx context.Context) (key, url string, err error) {
	defer func() { metrics.ObserveBackup(err) }()

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return "", "", err
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", "", fmt.Errorf("error encoding snapshot: %w", err)
	}

	putter, presigner, err := s.clients(ctx)
	if err != nil {
		return "", "", fmt.Errorf("error creating s3 client: %w", err)
	}

	bucket := s.config.S3Bucket
	key = StorageKey(snap.CreatedAt)

	_, err = putter.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", "", fmt.Errorf("error uploading snapshot: %w", err)
	}

	// Presigned GET
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(presignExpiry))
	if err != nil {
		return "", "", fmt.Errorf("error presigning snapshot: %w", err)
	}

	s.logger.Info(ctx, "backup_uploaded", "key", key, "habits", len(snap.Habits), "bytes", len(body))

	return key, req.URL, nil
}

// RunPeriodic uploads a snapshot every interval until ctx is cancelled.
func (s *Service) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := s.Create(ctx); err != nil {
				s.logger.Error(ctx, "backup_failed", "error", err)
			}
		}
	}
}
