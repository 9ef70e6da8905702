package models

import "bitbucket.org/mmdatafocus/cashflow_backend/config"

type RedisCleaner interface {
	RemoveInstanceRedis() error // remove one
	RemoveAllRedis() error      // remove list if exists
}

// remove both item & list
func RemoveRedisBoth[T RedisCleaner](obj T) error {
	if err := obj.RemoveInstanceRedis(); err != nil {
		return err
	}
	if err := obj.RemoveAllRedis(); err != nil {
		return err
	}
	return nil
}

// ReportCachePattern matches every cached cash flow report of one business.
func ReportCachePattern(businessId string) string {
	return "CashFlowReport:" + businessId + ":*"
}

// cleanReportCache drops a business's cached reports after a write that
// changes report inputs. Best effort: the cache TTL bounds staleness if the
// delete fails.
func cleanReportCache(businessId string) {
	_ = config.RemoveRedisKeysByPattern(ReportCachePattern(businessId))
}
