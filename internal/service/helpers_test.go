package service

import (
	"github.com/spec-kit/sac-service/internal/aggregate"
	"github.com/spec-kit/sac-service/internal/auth"
)

func aggregateQuery() aggregate.InboxQuery {
	return aggregate.InboxQuery{Quick: aggregate.QuickAll, Sort: aggregate.SortPriority, Direction: aggregate.Desc}
}

func hashForTest(password string) (string, error) {
	return auth.HashPassword(password, 4)
}
