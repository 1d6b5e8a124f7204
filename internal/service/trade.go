package service

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// TradeService reads raw ledger rows back out of Postgres. The table stores
// every source column, so query results always carry the full raw column
// set.
type TradeService struct {
	pool *pgxpool.Pool
}

func NewTradeService(pool *pgxpool.Pool) *TradeService {
	return &TradeService{pool: pool}
}

// rawColumns is the column set every row read from p2p_trades carries.
var rawColumns = []domain.Column{
	domain.ColOrderNumber,
	domain.ColOrderType,
	domain.ColAssetType,
	domain.ColFiatType,
	domain.ColTotalPrice,
	domain.ColPrice,
	domain.ColQuantity,
	domain.ColCounterparty,
	domain.ColStatus,
	domain.ColMatchTimeUTC,
	domain.ColPaymentMethod,
	domain.ColMakerFee,
	domain.ColTakerFee,
}

// GetTrades fetches ledger rows matching the filter and returns them as an
// analysis-ready dataset.
func (s *TradeService) GetTrades(ctx context.Context, filter domain.TradeFilter) (*domain.Dataset, error) {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.DatabaseQueryDuration.WithLabelValues("trades"))

	query := `
        SELECT
            order_number,
            order_type,
            asset_type,
            fiat_type,
            total_price,
            price,
            quantity,
            counterparty,
            status,
            match_time_utc,
            payment_method,
            maker_fee,
            taker_fee
        FROM p2p_trades
        WHERE 1=1
    `

	var args []interface{}
	argCount := 0

	if filter.FiatType != "" {
		argCount++
		query += fmt.Sprintf(" AND fiat_type = $%d", argCount)
		args = append(args, filter.FiatType)
	}
	if filter.AssetType != "" {
		argCount++
		query += fmt.Sprintf(" AND asset_type = $%d", argCount)
		args = append(args, filter.AssetType)
	}
	if filter.Status != "" {
		argCount++
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filter.Status)
	}
	if filter.StartDate != nil {
		argCount++
		query += fmt.Sprintf(" AND match_time_utc >= $%d", argCount)
		args = append(args, filter.StartDate.UTC().Format("2006-01-02 15:04:05"))
	}
	if filter.EndDate != nil {
		argCount++
		query += fmt.Sprintf(" AND match_time_utc <= $%d", argCount)
		args = append(args, filter.EndDate.UTC().Format("2006-01-02 15:04:05"))
	}

	query += " ORDER BY match_time_utc ASC"

	logger.Debug("querying trades",
		zap.String("fiat", filter.FiatType),
		zap.String("asset", filter.AssetType),
		zap.String("status", filter.Status))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("trades", "error").Inc()
		return nil, fmt.Errorf("querying trades: %w", err)
	}
	defer rows.Close()

	var records []domain.EnrichedRecord
	for rows.Next() {
		var trade domain.TradeRecord
		err := rows.Scan(
			&trade.OrderNumber,
			&trade.OrderType,
			&trade.AssetType,
			&trade.FiatType,
			&trade.TotalPrice,
			&trade.Price,
			&trade.Quantity,
			&trade.Counterparty,
			&trade.Status,
			&trade.MatchTimeUTC,
			&trade.PaymentMethod,
			&trade.MakerFee,
			&trade.TakerFee,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning trade: %w", err)
		}
		records = append(records, domain.EnrichedRecord{TradeRecord: trade})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trades: %w", err)
	}

	metrics.DatabaseQueries.WithLabelValues("trades", "success").Inc()
	logger.Info("trades fetched", zap.Int("records", len(records)))

	return &domain.Dataset{
		Columns: domain.NewColumnSet(rawColumns...),
		Records: records,
	}, nil
}

// CountTrades returns the total number of ledger rows.
func (s *TradeService) CountTrades(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM p2p_trades").Scan(&count)
	if err != nil {
		metrics.DatabaseQueries.WithLabelValues("trade_count", "error").Inc()
		return 0, fmt.Errorf("counting trades: %w", err)
	}
	metrics.DatabaseQueries.WithLabelValues("trade_count", "success").Inc()
	return count, nil
}

// ListFiats returns the distinct fiat currencies present in the ledger.
func (s *TradeService) ListFiats(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT DISTINCT fiat_type FROM p2p_trades ORDER BY fiat_type")
	if err != nil {
		return nil, fmt.Errorf("listing fiats: %w", err)
	}
	defer rows.Close()

	var fiats []string
	for rows.Next() {
		var fiat string
		if err := rows.Scan(&fiat); err != nil {
			return nil, fmt.Errorf("scanning fiat: %w", err)
		}
		fiats = append(fiats, fiat)
	}
	return fiats, rows.Err()
}
