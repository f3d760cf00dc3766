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

// SafeInvalidateVersionTree drops a version's tree cache with logging.
func SafeInvalidateVersionTree(ctx context.Context, cm *CacheManager, versionID uint) {
	if err := cm.InvalidateVersionTree(ctx, versionID); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate version tree cache",
			"error", err,
			"version_id", versionID)
	}
}

// InvalidateTemplateCache invalidates template metadata plus the trees of
// its versions when the whole template changed shape.
func InvalidateTemplateCache(ctx context.Context, cm *CacheManager, templateID uint, versionIDs ...uint) {
	SafeDelete(ctx, cm.Template, fmt.Sprintf("id:%d", templateID))
	SafeInvalidatePattern(ctx, cm.Template, "list:*")
	for _, versionID := range versionIDs {
		SafeInvalidateVersionTree(ctx, cm, versionID)
	}
}
