package analytics

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/jeovahfialho/p2p-analyzer/internal/domain"
	"github.com/jeovahfialho/p2p-analyzer/pkg/logger"
	"github.com/jeovahfialho/p2p-analyzer/pkg/metrics"
)

// durationEpsilonMinutes floors session durations in rate denominators so a
// single-record session does not divide by zero.
const durationEpsilonMinutes = 0.01

// SessionSegmenter clusters the time-ordered record stream into sessions
// using an inactivity-gap rule and aggregates per-session statistics.
type SessionSegmenter struct {
	params Params
	log    *zap.Logger
}

func NewSessionSegmenter(params Params) *SessionSegmenter {
	return &SessionSegmenter{params: params, log: logger.Named("sessions")}
}

// SessionResult bundles the session-level tables. All slices may be empty.
type SessionResult struct {
	Stats          []domain.SessionStat
	Patterns       []domain.SessionPattern
	Efficiency     []domain.SessionEfficiency
	HourBuckets    []domain.SessionHourBucket
	Counterparties []domain.CounterpartySessionStat
}

var sessionRequiredColumns = []domain.Column{
	domain.ColMatchTimeLocal,
	domain.ColTotalPriceNum,
	domain.ColQuantityNum,
	domain.ColCounterparty,
}

// Analyze runs segmentation over the dataset. Sessions are recomputed in
// full on every call; ids restart at 1 and are only meaningful within one
// run over one filtered subset.
func (s *SessionSegmenter) Analyze(ds *domain.Dataset) SessionResult {
	if missing := ds.Columns.Missing(sessionRequiredColumns...); len(missing) > 0 {
		s.log.Warn("session analysis skipped, columns missing",
			zap.Strings("columns", domain.ColumnNames(missing)))
		metrics.RecordSkippedAnalysis("sessions")
		return SessionResult{}
	}

	records := validSessionRecords(ds)
	if len(records) == 0 {
		s.log.Warn("no valid records for session analysis")
		return SessionResult{}
	}

	ids := assignSessionIDs(records, s.params.SessionGapMinutes)
	stats := aggregateSessions(records, ids)

	s.log.Info("sessions identified",
		zap.Int("sessions", len(stats)),
		zap.Int("records", len(records)))

	return SessionResult{
		Stats:          stats,
		Patterns:       sessionPatterns(records, ids),
		Efficiency:     sessionEfficiency(records, ids),
		HourBuckets:    sessionHourDistribution(stats),
		Counterparties: counterpartySessions(records, ids),
	}
}

// validSessionRecords filters to rows with a parsed timestamp and positive
// volume and returns them sorted ascending by time. Ties keep input order.
func validSessionRecords(ds *domain.Dataset) []*domain.EnrichedRecord {
	var out []*domain.EnrichedRecord
	for i := range ds.Records {
		rec := &ds.Records[i]
		if rec.MatchTimeParsed == nil || rec.TotalPriceNum == nil || *rec.TotalPriceNum <= 0 {
			continue
		}
		out = append(out, rec)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MatchTimeParsed.Before(*out[j].MatchTimeParsed)
	})
	return out
}

// assignSessionIDs is the one-pass gap clustering: a record opens a new
// session when it is the first one or its gap from the previous record
// exceeds the threshold. Identical timestamps are zero-gap and never split.
func assignSessionIDs(records []*domain.EnrichedRecord, gapMinutes int) []int {
	gap := time.Duration(gapMinutes) * time.Minute
	ids := make([]int, len(records))

	currentID := 0
	var last *time.Time
	for i, rec := range records {
		if last == nil || rec.MatchTimeParsed.Sub(*last) > gap {
			currentID++
		}
		ids[i] = currentID
		last = rec.MatchTimeParsed
	}
	return ids
}

func aggregateSessions(records []*domain.EnrichedRecord, ids []int) []domain.SessionStat {
	var stats []domain.SessionStat

	flush := func(start int, end int, id int) {
		chunk := records[start:end]
		first := *chunk[0].MatchTimeParsed
		lastT := *chunk[len(chunk)-1].MatchTimeParsed

		var volume, quantity float64
		counterparties := make(map[string]struct{})
		fiats := make([]string, 0, len(chunk))
		assets := make([]string, 0, len(chunk))
		for _, rec := range chunk {
			volume += *rec.TotalPriceNum
			if rec.QuantityNum != nil {
				quantity += *rec.QuantityNum
			}
			counterparties[rec.Counterparty] = struct{}{}
			fiats = append(fiats, rec.FiatType)
			assets = append(assets, rec.AssetType)
		}

		duration := lastT.Sub(first).Minutes()
		safeDuration := duration
		if safeDuration < durationEpsilonMinutes {
			safeDuration = durationEpsilonMinutes
		}
		fiat, _ := modeString(fiats)
		asset, _ := modeString(assets)

		stats = append(stats, domain.SessionStat{
			SessionID:            id,
			Start:                first,
			End:                  lastT,
			NumOperations:        len(chunk),
			TotalVolume:          volume,
			AvgVolumePerOp:       volume / float64(len(chunk)),
			TotalQuantity:        quantity,
			UniqueCounterparties: len(counterparties),
			DominantFiat:         fiat,
			DominantAsset:        asset,
			DurationMinutes:      duration,
			OperationsPerHour:    float64(len(chunk)) / (safeDuration / 60),
			VolumePerMinute:      volume / safeDuration,
		})
	}

	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || ids[i] != ids[start] {
			flush(start, i, ids[start])
			start = i
		}
	}
	return stats
}

// sessionPatterns records each session's hour-of-day footprint: the hours
// of its first and last operation and the span of hours it touched.
func sessionPatterns(records []*domain.EnrichedRecord, ids []int) []domain.SessionPattern {
	var patterns []domain.SessionPattern

	flush := func(start int, end int, id int) {
		chunk := records[start:end]
		minHour := chunk[0].MatchTimeParsed.UTC().Hour()
		maxHour := minHour
		var volume float64
		for _, rec := range chunk {
			h := rec.MatchTimeParsed.UTC().Hour()
			if h < minHour {
				minHour = h
			}
			if h > maxHour {
				maxHour = h
			}
			volume += *rec.TotalPriceNum
		}

		patterns = append(patterns, domain.SessionPattern{
			SessionID:   id,
			StartHour:   chunk[0].MatchTimeParsed.UTC().Hour(),
			EndHour:     chunk[len(chunk)-1].MatchTimeParsed.UTC().Hour(),
			TotalOps:    len(chunk),
			TotalVolume: volume,
			HourSpan:    maxHour - minHour,
		})
	}

	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || ids[i] != ids[start] {
			flush(start, i, ids[start])
			start = i
		}
	}
	return patterns
}

// sessionEfficiency scores each session: volume per minute, operations per
// minute, and a consistency score that grows as the volume volatility
// shrinks relative to the session total. The volatility ratio is floored at
// 0.01, so consistency tops out at 100.
func sessionEfficiency(records []*domain.EnrichedRecord, ids []int) []domain.SessionEfficiency {
	var stats []domain.SessionEfficiency

	flush := func(start int, end int, id int) {
		chunk := records[start:end]
		volumes := make([]float64, len(chunk))
		var total float64
		for i, rec := range chunk {
			volumes[i] = *rec.TotalPriceNum
			total += volumes[i]
		}

		duration := chunk[len(chunk)-1].MatchTimeParsed.Sub(*chunk[0].MatchTimeParsed).Minutes()
		safeDuration := duration
		if safeDuration < durationEpsilonMinutes {
			safeDuration = durationEpsilonMinutes
		}

		q25, _ := quantile(volumes, 0.25)
		q75, _ := quantile(volumes, 0.75)

		eff := domain.SessionEfficiency{
			SessionID:        id,
			NumOperations:    len(chunk),
			TotalVolume:      total,
			VolumeIQR:        q75 - q25,
			DurationMinutes:  duration,
			VolumeEfficiency: total / safeDuration,
			IntensityScore:   float64(len(chunk)) / safeDuration,
		}
		if sd, ok := stddev(volumes); ok {
			eff.VolumeVolatility = floatPtr(sd)
			ratio := sd / total
			if ratio < 0.01 {
				ratio = 0.01
			}
			eff.ConsistencyScore = floatPtr(1 / ratio)
		}

		stats = append(stats, eff)
	}

	start := 0
	for i := 1; i <= len(records); i++ {
		if i == len(records) || ids[i] != ids[start] {
			flush(start, i, ids[start])
			start = i
		}
	}
	return stats
}

func sessionHourDistribution(stats []domain.SessionStat) []domain.SessionHourBucket {
	type acc struct {
		sessions int
		volume   float64
		duration float64
		ops      int
	}
	byHour := make(map[int]*acc)
	for _, s := range stats {
		hour := s.Start.UTC().Hour()
		a := byHour[hour]
		if a == nil {
			a = &acc{}
			byHour[hour] = a
		}
		a.sessions++
		a.volume += s.TotalVolume
		a.duration += s.DurationMinutes
		a.ops += s.NumOperations
	}

	hours := make([]int, 0, len(byHour))
	for h := range byHour {
		hours = append(hours, h)
	}
	sort.Ints(hours)

	buckets := make([]domain.SessionHourBucket, 0, len(hours))
	for _, h := range hours {
		a := byHour[h]
		buckets = append(buckets, domain.SessionHourBucket{
			StartHour:     h,
			NumSessions:   a.sessions,
			TotalVolume:   a.volume,
			AvgDuration:   a.duration / float64(a.sessions),
			AvgOperations: float64(a.ops) / float64(a.sessions),
		})
	}
	return buckets
}

func counterpartySessions(records []*domain.EnrichedRecord, ids []int) []domain.CounterpartySessionStat {
	type sessionAcc struct {
		ops    int
		volume float64
		first  time.Time
		last   time.Time
	}
	perPair := make(map[string]map[int]*sessionAcc)

	for i, rec := range records {
		bySession := perPair[rec.Counterparty]
		if bySession == nil {
			bySession = make(map[int]*sessionAcc)
			perPair[rec.Counterparty] = bySession
		}
		a := bySession[ids[i]]
		if a == nil {
			a = &sessionAcc{first: *rec.MatchTimeParsed, last: *rec.MatchTimeParsed}
			bySession[ids[i]] = a
		}
		a.ops++
		a.volume += *rec.TotalPriceNum
		if rec.MatchTimeParsed.Before(a.first) {
			a.first = *rec.MatchTimeParsed
		}
		if rec.MatchTimeParsed.After(a.last) {
			a.last = *rec.MatchTimeParsed
		}
	}

	stats := make([]domain.CounterpartySessionStat, 0, len(perPair))
	for cp, bySession := range perPair {
		var opsSum, maxOps int
		var volSum, maxVol, durSum float64
		for _, a := range bySession {
			opsSum += a.ops
			volSum += a.volume
			durSum += a.last.Sub(a.first).Minutes()
			if a.ops > maxOps {
				maxOps = a.ops
			}
			if a.volume > maxVol {
				maxVol = a.volume
			}
		}
		n := float64(len(bySession))
		stats = append(stats, domain.CounterpartySessionStat{
			Counterparty:       cp,
			TotalSessions:      len(bySession),
			AvgOpsPerSession:   float64(opsSum) / n,
			AvgVolumePerSess:   volSum / n,
			MaxOpsInSession:    maxOps,
			MaxVolumeInSession: maxVol,
			AvgSessionDuration: durSum / n,
		})
	}

	sort.Slice(stats, func(i, j int) bool {
		if stats[i].TotalSessions != stats[j].TotalSessions {
			return stats[i].TotalSessions > stats[j].TotalSessions
		}
		return stats[i].Counterparty < stats[j].Counterparty
	})
	return stats
}
