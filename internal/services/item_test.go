package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/vellumcms/vellum-backend/internal/platform/cmserr"
	"github.com/vellumcms/vellum-backend/internal/types"
)

func homepage(t *testing.T, env *testEnv) ItemService {
	t.Helper()
	svc, ok := env.registry.Items["homepage"]
	if !ok {
		t.Fatal("homepage item service not registered")
	}
	return svc
}

func TestItemIsSeededWithDefaults(t *testing.T) {
	env := newTestEnv(t)
	svc := homepage(t, env)

	rec, err := svc.Get(context.Background(), env.token, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec == nil {
		t.Fatal("singleton missing after registry construction")
	}
	if rec.Meta.Version != 1 {
		t.Fatalf("seeded version = %d, want 1", rec.Meta.Version)
	}
	if !rec.Fields["headline"].Equal(str("Welcome")) {
		t.Fatalf("seeded headline = %v", rec.Fields["headline"])
	}
	// Seeding is not attributed to any user.
	if rec.Meta.Created.By != uuid.Nil {
		t.Fatalf("seeded created.by = %v, want the nil uuid", rec.Meta.Created.By)
	}
}

func TestItemUpdateAndPatch(t *testing.T) {
	env := newTestEnv(t)
	svc := homepage(t, env)
	ctx := context.Background()

	old, err := svc.Update(ctx, env.token, types.Fields{
		"headline": str("Hello"),
		"tagline":  str("the small cms"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !old.Fields["headline"].Equal(str("Welcome")) {
		t.Fatalf("update returned headline %v, want the seeded value", old.Fields["headline"])
	}

	old, err = svc.Patch(ctx, env.token, types.Fields{"tagline": str("still small")})
	if err != nil {
		t.Fatalf("patch: %v", err)
	}
	if !old.Fields["tagline"].Equal(str("the small cms")) {
		t.Fatalf("patch returned tagline %v", old.Fields["tagline"])
	}

	current, err := svc.Get(ctx, env.token, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if current.Meta.Version != 3 {
		t.Fatalf("version = %d, want 3", current.Meta.Version)
	}
	if !current.Fields["headline"].Equal(str("Hello")) || !current.Fields["tagline"].Equal(str("still small")) {
		t.Fatalf("current fields = %v", current.Fields)
	}
}

func TestItemPublishCycle(t *testing.T) {
	env := newTestEnv(t)
	svc := homepage(t, env)
	ctx := context.Background()

	live, err := svc.IsLive(ctx, env.token)
	if err != nil {
		t.Fatalf("isLive: %v", err)
	}
	if live {
		t.Fatal("item live before publish")
	}

	if _, err := svc.Publish(ctx, env.token); err != nil {
		t.Fatalf("publish: %v", err)
	}
	live, err = svc.IsLive(ctx, env.token)
	if err != nil {
		t.Fatalf("isLive: %v", err)
	}
	if !live {
		t.Fatal("item not live after publish")
	}

	snapshot, err := svc.LiveGet(ctx)
	if err != nil {
		t.Fatalf("liveGet: %v", err)
	}
	if snapshot == nil || !snapshot.Fields["headline"].Equal(str("Welcome")) {
		t.Fatalf("live snapshot = %+v", snapshot)
	}

	if _, err := svc.Unpublish(ctx, env.token); err != nil {
		t.Fatalf("unpublish: %v", err)
	}
	live, err = svc.IsLive(ctx, env.token)
	if err != nil {
		t.Fatalf("isLive: %v", err)
	}
	if live {
		t.Fatal("item still live after unpublish")
	}
}

func TestItemRollbackRequiresVersion(t *testing.T) {
	env := newTestEnv(t)
	svc := homepage(t, env)
	ctx := context.Background()

	if _, err := svc.PreviewRollback(ctx, env.token, nil); !cmserr.Is(err, cmserr.CodeMissingVersion) {
		t.Fatalf("previewRollback without version: %v", err)
	}
	if _, err := svc.Rollback(ctx, env.token, nil); !cmserr.Is(err, cmserr.CodeMissingVersion) {
		t.Fatalf("rollback without version: %v", err)
	}
}

func TestItemRollbackRestoresVersion(t *testing.T) {
	env := newTestEnv(t)
	svc := homepage(t, env)
	ctx := context.Background()

	if _, err := svc.Update(ctx, env.token, types.Fields{"headline": str("Second")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Update(ctx, env.token, types.Fields{"headline": str("Third")}); err != nil {
		t.Fatalf("second update: %v", err)
	}

	entries, err := svc.History(ctx, env.token)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history has %d entries, want 2", len(entries))
	}

	one := 1
	preview, err := svc.PreviewRollback(ctx, env.token, &one)
	if err != nil {
		t.Fatalf("previewRollback: %v", err)
	}
	if !preview.Fields["headline"].Equal(str("Welcome")) {
		t.Fatalf("preview headline = %v, want the seeded value", preview.Fields["headline"])
	}

	if _, err := svc.Rollback(ctx, env.token, &one); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	current, err := svc.Get(ctx, env.token, nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !current.Fields["headline"].Equal(str("Welcome")) {
		t.Fatalf("headline after rollback = %v", current.Fields["headline"])
	}
	if current.Meta.Version != 4 {
		t.Fatalf("version after rollback = %d, want 4", current.Meta.Version)
	}
}

func TestItemDescribe(t *testing.T) {
	env := newTestEnv(t)
	svc := homepage(t, env)

	info, err := svc.Describe(context.Background(), env.token)
	if err != nil {
		t.Fatalf("describe: %v", err)
	}
	if info.Name != "homepage" {
		t.Fatalf("describe name = %q", info.Name)
	}
	if len(info.Fields) != 2 {
		t.Fatalf("describe lists %d fields, want 2", len(info.Fields))
	}
}
