package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateExamCache invalidates exam layout caches after exam writes
func InvalidateExamCache(ctx context.Context, cm *CacheManager, examID uint) {
	SafeDelete(ctx, cm.Exam,
		fmt.Sprintf("id:%d", examID),
		fmt.Sprintf("questions:%d", examID))
	SafeInvalidatePattern(ctx, cm.Exam, "list:*")
}

// InvalidateScoreCache invalidates score caches after (re)evaluation
func InvalidateScoreCache(ctx context.Context, cm *CacheManager, attemptID uint, userID string) {
	SafeDelete(ctx, cm.Score,
		fmt.Sprintf("attempt:%d", attemptID),
		fmt.Sprintf("sections:%d", attemptID))
	SafeInvalidatePattern(ctx, cm.Score, fmt.Sprintf("user:%s:*", userID))
}
