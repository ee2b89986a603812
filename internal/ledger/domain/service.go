package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/ledgerly/pkg/date"
	"gorm.io/gorm"
)

// Service is the posting engine. Both operations run inside the caller's
// open transaction so document writes and their ledger effects commit or
// roll back together.
type Service interface {
	// Post validates the request against the posting invariants and writes
	// one ledger entry per line.
	Post(ctx context.Context, tx *gorm.DB, req PostingRequest) ([]LedgerEntry, error)

	// ReverseSource writes compensating entries (sides swapped) for every
	// posted entry of the given source document. Used by document voids.
	ReverseSource(ctx context.Context, tx *gorm.DB, orgID snowflake.ID, txType TransactionType, sourceID snowflake.ID, reversalDate date.Date) ([]LedgerEntry, error)
}
