package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// VisitHistoryRepository reads (:Member)-[:VISITED]->(:Store) edges. The
// visitedAt property holds epoch milliseconds.
type VisitHistoryRepository struct {
	driver neo4j.DriverWithContext
	logger *logrus.Logger
}

func NewVisitHistoryRepository(driver neo4j.DriverWithContext, logger *logrus.Logger) *VisitHistoryRepository {
	return &VisitHistoryRepository{
		driver: driver,
		logger: logger,
	}
}

const lastVisitsQuery = `
	MATCH (m:Member {id: $memberId})-[v:VISITED]->(s:Store)
	RETURN s.id AS storeId, max(v.visitedAt) AS lastVisitedAt`

// LastVisits returns the most recent visit per store.
func (r *VisitHistoryRepository) LastVisits(ctx context.Context, memberID int64) (map[int64]time.Time, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, lastVisitsQuery, map[string]interface{}{
		"memberId": memberID,
	})
	if err != nil {
		return nil, fmt.Errorf("visit history query failed: %w", err)
	}

	records, err := result.Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read visit history: %w", err)
	}

	return r.lastVisitsFromRecords(records), nil
}

// RecordVisit merges a visit edge, keeping the latest timestamp.
func (r *VisitHistoryRepository) RecordVisit(ctx context.Context, memberID, storeID int64, visitedAt time.Time) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.Run(ctx, `
		MERGE (m:Member {id: $memberId})
		MERGE (s:Store {id: $storeId})
		MERGE (m)-[v:VISITED]->(s)
		ON CREATE SET v.visitedAt = $visitedAt
		ON MATCH SET v.visitedAt = CASE WHEN v.visitedAt < $visitedAt THEN $visitedAt ELSE v.visitedAt END`,
		map[string]interface{}{
			"memberId":  memberID,
			"storeId":   storeID,
			"visitedAt": visitedAt.UnixMilli(),
		})
	if err != nil {
		return fmt.Errorf("failed to record visit: %w", err)
	}
	return nil
}

func (r *VisitHistoryRepository) lastVisitsFromRecords(records []*neo4j.Record) map[int64]time.Time {
	visits := make(map[int64]time.Time, len(records))
	for _, record := range records {
		if len(record.Values) < 2 {
			continue
		}
		storeID, ok := record.Values[0].(int64)
		if !ok {
			r.logger.WithField("value", record.Values[0]).Debug("Skipping visit with non-integer store id")
			continue
		}
		millis, ok := record.Values[1].(int64)
		if !ok {
			continue
		}
		visits[storeID] = time.UnixMilli(millis).UTC()
	}
	return visits
}
