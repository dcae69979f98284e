package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/klauspost/compress/zstd"

	"lotline/internal/core/id"
	"lotline/internal/core/identity"
)

// CompressionAlgo specifies the payload compression algorithm.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// AuditEntry is one recorded document action with its full payload.
type AuditEntry struct {
	ID                id.ID           `json:"id" db:"id"`
	TenantID          string          `json:"tenantId" db:"tenant_id"`
	Action            string          `json:"action" db:"action"`
	DocumentID        id.ID           `json:"documentId" db:"document_id"`
	ActorID           string          `json:"actorId" db:"actor_id"`
	Payload           json.RawMessage `json:"payload,omitempty" db:"payload"`
	PayloadCompressed []byte          `json:"-" db:"payload_compressed"`
	CompressionAlgo   CompressionAlgo `json:"-" db:"compression_algo"`
	CreatedAt         time.Time       `json:"createdAt" db:"created_at"`
}

// AuditService records document actions into audit_log.
// Large payloads (adjustments with many lines) are zstd-compressed.
// It satisfies adjustments.Auditor.
type AuditService struct {
	txManager         *TxManager
	encoder           *zstd.Encoder
	decoder           *zstd.Decoder
	compressThreshold int // bytes
}

// NewAuditService creates a new audit service.
func NewAuditService(txManager *TxManager) (*AuditService, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &AuditService{
		txManager:         txManager,
		encoder:           encoder,
		decoder:           decoder,
		compressThreshold: 10 * 1024,
	}, nil
}

// Record logs a document action. Joins the ambient transaction so the
// audit row commits with the change it describes.
func (s *AuditService) Record(ctx context.Context, action string, docID id.ID, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	entry := AuditEntry{
		ID:              id.New(),
		TenantID:        identity.GetTenantID(ctx),
		Action:          action,
		DocumentID:      docID,
		ActorID:         identity.GetActorID(ctx),
		Payload:         raw,
		CompressionAlgo: CompressionNone,
		CreatedAt:       time.Now().UTC(),
	}

	if len(entry.Payload) > s.compressThreshold {
		entry.PayloadCompressed = s.encoder.EncodeAll(entry.Payload, nil)
		entry.Payload = nil
		entry.CompressionAlgo = CompressionZstd
	}

	sql := `
		INSERT INTO audit_log (
			id, tenant_id, action, document_id, actor_id,
			payload, payload_compressed, compression_algo, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	querier := s.txManager.GetQuerier(ctx)
	_, err = querier.Exec(ctx, sql,
		entry.ID, entry.TenantID, entry.Action, entry.DocumentID, entry.ActorID,
		entry.Payload, entry.PayloadCompressed, entry.CompressionAlgo, entry.CreatedAt,
	)
	return err
}

// History retrieves the audit trail for one document, newest first.
func (s *AuditService) History(ctx context.Context, tenantID string, docID id.ID, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	sql := `
		SELECT id, tenant_id, action, document_id, actor_id,
		       payload, payload_compressed, compression_algo, created_at
		FROM audit_log
		WHERE tenant_id = $1 AND document_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := s.txManager.GetQuerier(ctx).Query(ctx, sql, tenantID, docID, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit history: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		err := rows.Scan(
			&e.ID, &e.TenantID, &e.Action, &e.DocumentID, &e.ActorID,
			&e.Payload, &e.PayloadCompressed, &e.CompressionAlgo, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}

		if e.CompressionAlgo == CompressionZstd && len(e.PayloadCompressed) > 0 {
			decompressed, err := s.decoder.DecodeAll(e.PayloadCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress audit payload: %w", err)
			}
			e.Payload = decompressed
			e.PayloadCompressed = nil
		}

		entries = append(entries, e)
	}

	return entries, rows.Err()
}
