package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"contratos/internal/billing"
	"contratos/internal/models"
	"contratos/internal/repository"
)

// IndexService stores monthly economic index samples and computes the
// compounded accumulation over a month range.
type IndexService struct {
	Repo   repository.Repository
	Logger *zap.Logger
}

// YearMonth identifies a sample month.
type YearMonth struct {
	Year  int
	Month int
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%02d/%04d", ym.Month, ym.Year)
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month >= 12 {
		return YearMonth{Year: ym.Year + 1, Month: 1}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// After reports whether ym follows other.
func (ym YearMonth) After(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year > other.Year
	}
	return ym.Month > other.Month
}

// YearMonthOf truncates a date to its sample month.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: int(t.Month())}
}

// ImportSample upserts one monthly value. Re-importing a month overwrites the
// stored percent, supporting corrective publications.
func (s *IndexService) ImportSample(ctx context.Context, indexType string, year, month int, percent decimal.Decimal, source string) (*models.IndexSample, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("index service not configured")
	}
	indexType = strings.ToUpper(strings.TrimSpace(indexType))
	if indexType == "" || indexType == models.IndexFixed {
		return nil, fmt.Errorf("%w: index type %q does not take samples", billing.ErrInvalidTerms, indexType)
	}
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("%w: month %d out of range", billing.ErrInvalidTerms, month)
	}
	if year < 1990 || year > 2200 {
		return nil, fmt.Errorf("%w: year %d out of range", billing.ErrInvalidTerms, year)
	}
	sample := &models.IndexSample{
		IndexType: indexType,
		Year:      year,
		Month:     month,
		Percent:   percent,
		Source:    strings.TrimSpace(source),
	}
	if err := s.Repo.UpsertIndexSample(ctx, sample); err != nil {
		return nil, fmt.Errorf("upsert index sample: %w", err)
	}
	if s.Logger != nil {
		s.Logger.Info("index sample imported",
			zap.String("index", indexType),
			zap.String("period", sample.Period()),
			zap.String("percent", percent.String()))
	}
	return sample, nil
}

// AccumulatedPercent compounds the monthly values over the closed range
// [from, to]: (prod(1 + v/100) - 1) * 100. Any missing month fails the whole
// computation with ErrMissingIndexSample naming the gaps.
func (s *IndexService) AccumulatedPercent(ctx context.Context, indexType string, from, to YearMonth) (decimal.Decimal, error) {
	if s == nil || s.Repo == nil {
		return decimal.Zero, fmt.Errorf("index service not configured")
	}
	if from.After(to) {
		return decimal.Zero, fmt.Errorf("%w: range %s..%s is inverted", billing.ErrInvalidTerms, from, to)
	}

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	product := one
	var missing []string

	for ym := from; !ym.After(to); ym = ym.Next() {
		sample, err := s.Repo.GetIndexSample(ctx, indexType, ym.Year, ym.Month)
		if err != nil {
			return decimal.Zero, fmt.Errorf("load index sample %s: %w", ym, err)
		}
		if sample == nil {
			missing = append(missing, ym.String())
			continue
		}
		product = product.Mul(one.Add(sample.Percent.Div(hundred)))
	}
	if len(missing) > 0 {
		return decimal.Zero, fmt.Errorf("%w: %s %s", billing.ErrMissingIndexSample, indexType, strings.Join(missing, ", "))
	}
	return product.Sub(one).Mul(hundred), nil
}

// MissingMonths lists the months in [from, to] with no stored sample.
func (s *IndexService) MissingMonths(ctx context.Context, indexType string, from, to YearMonth) ([]string, error) {
	if s == nil || s.Repo == nil {
		return nil, fmt.Errorf("index service not configured")
	}
	var missing []string
	for ym := from; !ym.After(to); ym = ym.Next() {
		sample, err := s.Repo.GetIndexSample(ctx, indexType, ym.Year, ym.Month)
		if err != nil {
			return nil, err
		}
		if sample == nil {
			missing = append(missing, ym.String())
		}
	}
	return missing, nil
}
