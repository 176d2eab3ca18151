package webhook

import (
	"context"

	"go.uber.org/zap"
)

// ComplianceRequest is the payload of a data-subject request webhook.
type ComplianceRequest struct {
	StoreID        int64           `json:"store_id"`
	Customer       *ComplianceUser `json:"customer"`
	OrdersToRedact []int64         `json:"orders_to_redact"`
}

// ComplianceUser identifies the data subject.
type ComplianceUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// ComplianceSink receives verified data-subject requests. Processing may be
// asynchronous; the webhook response never waits on completion.
type ComplianceSink interface {
	RedactStore(ctx context.Context, req *ComplianceRequest) error
	RedactCustomers(ctx context.Context, req *ComplianceRequest) error
	ExportCustomerData(ctx context.Context, req *ComplianceRequest) error
}

// LogComplianceSink acknowledges requests by logging them for the manual
// erasure/export runbook.
type LogComplianceSink struct {
	logger *zap.Logger
}

// NewLogComplianceSink creates a logging sink.
func NewLogComplianceSink(logger *zap.Logger) *LogComplianceSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogComplianceSink{logger: logger}
}

func (s *LogComplianceSink) RedactStore(_ context.Context, req *ComplianceRequest) error {
	s.logger.Info("store redact requested", zap.Int64("store_id", req.StoreID))
	return nil
}

func (s *LogComplianceSink) RedactCustomers(_ context.Context, req *ComplianceRequest) error {
	fields := []zap.Field{zap.Int64("store_id", req.StoreID), zap.Int64s("orders", req.OrdersToRedact)}
	if req.Customer != nil {
		fields = append(fields, zap.Int64("customer_id", req.Customer.ID))
	}
	s.logger.Info("customer redact requested", fields...)
	return nil
}

func (s *LogComplianceSink) ExportCustomerData(_ context.Context, req *ComplianceRequest) error {
	fields := []zap.Field{zap.Int64("store_id", req.StoreID)}
	if req.Customer != nil {
		fields = append(fields, zap.Int64("customer_id", req.Customer.ID))
	}
	s.logger.Info("customer data export requested", fields...)
	return nil
}
