package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	obsmetrics "github.com/smallbiznis/ledgerly/internal/observability/metrics"
	"github.com/smallbiznis/ledgerly/internal/sequence/domain"
	"github.com/smallbiznis/ledgerly/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("sequence.service"),
		genID:      p.GenID,
		repo:       p.Repo,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Allocate(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, class domain.Class) (string, error) {
	if orgID == 0 {
		return "", domain.ErrInvalidOrganization
	}
	if !class.Valid() {
		return "", domain.ErrInvalidClass
	}

	seq, err := s.repo.IncrementAndGet(ctx, tx, orgID, class)
	if err != nil {
		return "", err
	}
	if seq == nil {
		// First allocation for this class: create the row, then race the
		// increment again in case another transaction created it first.
		if err := s.createDefault(ctx, tx, orgID, class); err != nil {
			return "", err
		}
		seq, err = s.repo.IncrementAndGet(ctx, tx, orgID, class)
		if err != nil {
			return "", err
		}
		if seq == nil {
			return "", gorm.ErrRecordNotFound
		}
	}

	s.obsMetrics.RecordSequenceAllocation(ctx, string(class))
	return formatNumber(seq.Prefix, seq.Padding, seq.NextNumber), nil
}

func (s *Service) EnsureDefaults(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) error {
	if orgID == 0 {
		return domain.ErrInvalidOrganization
	}
	for _, class := range domain.AllClasses() {
		existing, err := s.repo.Find(ctx, tx, orgID, class)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.createDefault(ctx, tx, orgID, class); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) createDefault(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, class domain.Class) error {
	defaults := domain.Defaults(class)
	now := time.Now().UTC()
	err := s.repo.Insert(ctx, tx, &domain.DocumentSequence{
		ID:            s.genID.Generate(),
		OrgID:         orgID,
		DocumentClass: class,
		Prefix:        defaults.Prefix,
		Padding:       defaults.Padding,
		NextNumber:    1,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil && db.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func formatNumber(prefix string, padding int, n int64) string {
	if padding <= 0 {
		return fmt.Sprintf("%s%d", prefix, n)
	}
	return fmt.Sprintf("%s%0*d", prefix, padding, n)
}
