package usecase

import (
	"context"
	"testing"

	domainBot "github.com/AzielCF/az-fleet/domains/bot"
	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
)

func TestCanonicalTenantName(t *testing.T) {
	cases := map[string]string{
		"  server1 ": "SERVER1",
		"Server2":    "SERVER2",
		"SERVER3":    "SERVER3",
		"   ":        "",
	}
	for in, want := range cases {
		if got := CanonicalTenantName(in); got != want {
			t.Fatalf("CanonicalTenantName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTenantService_EnsureDefaultIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	NewBotService(db) // reconcile reads the bots table
	svc := NewTenantService(db, "server1", 10)
	ctx := context.Background()

	first, err := svc.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("EnsureDefault() unexpected error: %v", err)
	}
	if first.Name != "SERVER1" || first.Capacity != 10 {
		t.Fatalf("EnsureDefault() seeded %s/%d, want SERVER1/10", first.Name, first.Capacity)
	}

	second, err := svc.EnsureDefault(ctx)
	if err != nil {
		t.Fatalf("second EnsureDefault() unexpected error: %v", err)
	}
	if second.Name != first.Name {
		t.Fatalf("EnsureDefault() not idempotent: %s vs %s", second.Name, first.Name)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List() unexpected error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List() expected 1 tenant after double bootstrap, got %d", len(list))
	}
}

func TestTenantService_CreateNormalizesAndRejectsDuplicates(t *testing.T) {
	db := newTestDB(t)
	NewBotService(db)
	svc := NewTenantService(db, "SERVER1", 10)
	ctx := context.Background()

	created, err := svc.Create(ctx, domainTenant.CreateTenantRequest{Name: "  server2 "})
	if err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	if created.Name != "SERVER2" {
		t.Fatalf("Create() name = %q, want SERVER2", created.Name)
	}
	if created.Capacity != 10 {
		t.Fatalf("Create() capacity = %d, want the default 10", created.Capacity)
	}
	if created.Status != domainTenant.StatusActive {
		t.Fatalf("Create() status = %s, want active", created.Status)
	}

	if _, err := svc.Create(ctx, domainTenant.CreateTenantRequest{Name: "server2"}); err == nil {
		t.Fatalf("Create() expected duplicate error, got nil")
	}

	if _, err := svc.Create(ctx, domainTenant.CreateTenantRequest{Name: "   "}); err == nil {
		t.Fatalf("Create() expected error for blank name, got nil")
	}
}

func TestTenantService_UpdateGuards(t *testing.T) {
	db := newTestDB(t)
	NewBotService(db)
	svc := NewTenantService(db, "SERVER1", 10)
	ctx := context.Background()

	if _, err := svc.Create(ctx, domainTenant.CreateTenantRequest{Name: "SERVER2", Capacity: 5}); err != nil {
		t.Fatalf("Create() unexpected error: %v", err)
	}
	seedBot(t, db, "b1", "Alpha", "254700000001", "SERVER2", domainBot.ApprovalApproved)
	seedBot(t, db, "b2", "Bravo", "254700000002", "SERVER2", domainBot.ApprovalApproved)
	if err := svc.ReconcileCounts(ctx); err != nil {
		t.Fatalf("ReconcileCounts() unexpected error: %v", err)
	}

	zero := 0
	if _, err := svc.Update(ctx, "SERVER2", domainTenant.UpdateTenantRequest{Capacity: &zero}); err == nil {
		t.Fatalf("Update() expected error for capacity 0, got nil")
	}

	// Shrinking below the hosted bot count would orphan slots.
	one := 1
	if _, err := svc.Update(ctx, "SERVER2", domainTenant.UpdateTenantRequest{Capacity: &one}); err == nil {
		t.Fatalf("Update() expected error for capacity below current count, got nil")
	}

	badStatus := "paused"
	if _, err := svc.Update(ctx, "SERVER2", domainTenant.UpdateTenantRequest{Status: &badStatus}); err == nil {
		t.Fatalf("Update() expected error for status %q, got nil", badStatus)
	}

	three := 3
	inactive := "inactive"
	updated, err := svc.Update(ctx, "SERVER2", domainTenant.UpdateTenantRequest{
		Capacity: &three,
		Status:   &inactive,
	})
	if err != nil {
		t.Fatalf("Update() unexpected error: %v", err)
	}
	if updated.Capacity != 3 || updated.Status != domainTenant.StatusInactive {
		t.Fatalf("Update() = %d/%s, want 3/inactive", updated.Capacity, updated.Status)
	}
}

func TestTenantService_ReconcileCounts(t *testing.T) {
	db := newTestDB(t)
	NewBotService(db)
	svc := NewTenantService(db, "SERVER1", 10)
	ctx := context.Background()

	if _, err := svc.EnsureDefault(ctx); err != nil {
		t.Fatalf("EnsureDefault() unexpected error: %v", err)
	}
	seedBot(t, db, "b1", "Alpha", "254700000001", "SERVER1", domainBot.ApprovalApproved)
	seedBot(t, db, "b2", "Bravo", "254700000002", "SERVER1", domainBot.ApprovalPending)

	// Drift the stored counter on purpose.
	if err := db.Model(&tenantModel{}).Where("name = ?", "SERVER1").Update("current_count", 9).Error; err != nil {
		t.Fatalf("failed to drift counter: %v", err)
	}

	if err := svc.ReconcileCounts(ctx); err != nil {
		t.Fatalf("ReconcileCounts() unexpected error: %v", err)
	}

	tenant, err := svc.GetByName(ctx, "SERVER1")
	if err != nil {
		t.Fatalf("GetByName() unexpected error: %v", err)
	}
	if tenant.CurrentCount != 2 {
		t.Fatalf("ReconcileCounts() left count %d, want 2", tenant.CurrentCount)
	}
}
