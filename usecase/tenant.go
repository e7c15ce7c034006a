package usecase

import (
	"bytes"
	"context"
	"strings"
	"time"

	domainTenant "github.com/AzielCF/az-fleet/domains/tenant"
	pkgError "github.com/AzielCF/az-fleet/pkg/error"
	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
	"gorm.io/gorm"
)

// --- Persistence Model ---

type tenantModel struct {
	Name         string `gorm:"primaryKey;column:name"`
	Capacity     int    `gorm:"not null;default:10"`
	CurrentCount int    `gorm:"not null;default:0"`
	Status       string `gorm:"not null;default:'active'"`
	URL          string `gorm:"column:url"`
	Description  string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (tenantModel) TableName() string {
	return "tenants"
}

// --- Service ---

type tenantService struct {
	db              *gorm.DB
	defaultName     string
	defaultCapacity int
}

// NewTenantService builds the tenant service. defaultName and
// defaultCapacity seed the bootstrap tenant when none exists yet.
func NewTenantService(db *gorm.DB, defaultName string, defaultCapacity int) domainTenant.ITenantUsecase {
	if err := db.AutoMigrate(&tenantModel{}); err != nil {
		logrus.WithError(err).Error("[TENANT] failed to migrate tenants table")
	}
	return &tenantService{
		db:              db,
		defaultName:     CanonicalTenantName(defaultName),
		defaultCapacity: defaultCapacity,
	}
}

// CanonicalTenantName folds a server name into its canonical uppercase
// form. Every entry point goes through this before touching storage.
func CanonicalTenantName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func (s *tenantService) EnsureDefault(ctx context.Context) (domainTenant.Tenant, error) {
	var m tenantModel
	err := s.db.WithContext(ctx).First(&m, "name = ?", s.defaultName).Error
	if err == gorm.ErrRecordNotFound {
		m = tenantModel{
			Name:     s.defaultName,
			Capacity: s.defaultCapacity,
			Status:   string(domainTenant.StatusActive),
		}
		if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
			if !isDuplicateKeyError(err) {
				return domainTenant.Tenant{}, err
			}
			// Lost a bootstrap race against another instance; reload.
			if err := s.db.WithContext(ctx).First(&m, "name = ?", s.defaultName).Error; err != nil {
				return domainTenant.Tenant{}, err
			}
		} else {
			logrus.Infof("[TENANT] Seeded default server %s (capacity %d)", m.Name, m.Capacity)
		}
	} else if err != nil {
		return domainTenant.Tenant{}, err
	}

	if err := s.ReconcileCounts(ctx); err != nil {
		logrus.WithError(err).Warn("[TENANT] bootstrap count reconciliation failed")
	}

	return s.GetByName(ctx, s.defaultName)
}

func (s *tenantService) List(ctx context.Context) ([]domainTenant.Tenant, error) {
	var models []tenantModel
	if err := s.db.WithContext(ctx).Order("name asc").Find(&models).Error; err != nil {
		return nil, err
	}

	tenants := make([]domainTenant.Tenant, 0, len(models))
	for _, m := range models {
		tenants = append(tenants, fromTenantModel(m))
	}
	return tenants, nil
}

func (s *tenantService) GetByName(ctx context.Context, name string) (domainTenant.Tenant, error) {
	canonical := CanonicalTenantName(name)
	if canonical == "" {
		return domainTenant.Tenant{}, pkgError.ValidationError("name: cannot be blank.")
	}

	var m tenantModel
	if err := s.db.WithContext(ctx).First(&m, "name = ?", canonical).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return domainTenant.Tenant{}, pkgError.NotFoundError("tenant: server " + canonical + " not found.")
		}
		return domainTenant.Tenant{}, err
	}
	return fromTenantModel(m), nil
}

func (s *tenantService) Create(ctx context.Context, req domainTenant.CreateTenantRequest) (domainTenant.Tenant, error) {
	name := CanonicalTenantName(req.Name)
	if name == "" {
		return domainTenant.Tenant{}, pkgError.ValidationError("name: cannot be blank.")
	}

	capacity := req.Capacity
	if capacity <= 0 {
		capacity = s.defaultCapacity
	}

	m := tenantModel{
		Name:        name,
		Capacity:    capacity,
		Status:      string(domainTenant.StatusActive),
		URL:         strings.TrimSpace(req.URL),
		Description: strings.TrimSpace(req.Description),
	}

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		if isDuplicateKeyError(err) {
			return domainTenant.Tenant{}, pkgError.PolicyError("tenant: server " + name + " already exists.")
		}
		return domainTenant.Tenant{}, err
	}

	logrus.Infof("[TENANT] Created server %s (capacity %d)", name, capacity)
	return fromTenantModel(m), nil
}

func (s *tenantService) Update(ctx context.Context, name string, req domainTenant.UpdateTenantRequest) (domainTenant.Tenant, error) {
	existing, err := s.GetByName(ctx, name)
	if err != nil {
		return domainTenant.Tenant{}, err
	}

	updates := map[string]interface{}{}
	if req.Capacity != nil {
		if *req.Capacity < 1 {
			return domainTenant.Tenant{}, pkgError.ValidationError("capacity: must be at least 1.")
		}
		if *req.Capacity < existing.CurrentCount {
			return domainTenant.Tenant{}, pkgError.PolicyError("capacity: cannot shrink below current bot count.")
		}
		updates["capacity"] = *req.Capacity
	}
	if req.Status != nil {
		status := strings.ToLower(strings.TrimSpace(*req.Status))
		if status != string(domainTenant.StatusActive) && status != string(domainTenant.StatusInactive) {
			return domainTenant.Tenant{}, pkgError.ValidationError("status: must be active or inactive.")
		}
		updates["status"] = status
	}
	if req.URL != nil {
		updates["url"] = strings.TrimSpace(*req.URL)
	}
	if req.Description != nil {
		updates["description"] = strings.TrimSpace(*req.Description)
	}

	if len(updates) == 0 {
		return existing, nil
	}
	updates["updated_at"] = time.Now().UTC()

	if err := s.db.WithContext(ctx).Model(&tenantModel{}).Where("name = ?", existing.Name).Updates(updates).Error; err != nil {
		return domainTenant.Tenant{}, err
	}
	return s.GetByName(ctx, existing.Name)
}

// ProbeURL fetches the tenant's URL and extracts the page title and
// meta description. An empty stored description is backfilled with the
// probe result.
func (s *tenantService) ProbeURL(ctx context.Context, name string) (domainTenant.URLMetadata, error) {
	tenant, err := s.GetByName(ctx, name)
	if err != nil {
		return domainTenant.URLMetadata{}, err
	}
	if tenant.URL == "" {
		return domainTenant.URLMetadata{}, pkgError.ValidationError("url: server has no url configured.")
	}

	meta, err := fetchURLMetadata(tenant.URL)
	if err != nil {
		return domainTenant.URLMetadata{}, err
	}

	if tenant.Description == "" && meta.Description != "" {
		if err := s.db.WithContext(ctx).Model(&tenantModel{}).
			Where("name = ?", tenant.Name).
			Update("description", meta.Description).Error; err != nil {
			logrus.WithError(err).Warnf("[TENANT] failed to backfill description for %s", tenant.Name)
		}
	}

	return meta, nil
}

// ReconcileCounts recomputes every tenant's current_count from the bot
// table in one statement. Runs at bootstrap and after bulk mutations.
func (s *tenantService) ReconcileCounts(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec(
		`UPDATE tenants SET current_count = (SELECT COUNT(*) FROM bots WHERE bots.tenant_name = tenants.name)`,
	).Error
}

// fetchURLMetadata GETs the url with fasthttp and pulls <title> and the
// meta description out of the HTML.
func fetchURLMetadata(url string) (domainTenant.URLMetadata, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(fasthttp.MethodGet)
	req.Header.SetUserAgent("az-fleet-metadata-probe/1.0")

	client := &fasthttp.Client{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := client.DoRedirects(req, resp, 3); err != nil {
		return domainTenant.URLMetadata{}, pkgError.InternalServerError("probe: failed to fetch url: " + err.Error())
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return domainTenant.URLMetadata{}, pkgError.InternalServerError("probe: url answered with status " + strings.TrimSpace(string(resp.Header.StatusMessage())))
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return domainTenant.URLMetadata{}, pkgError.InternalServerError("probe: failed to parse page: " + err.Error())
	}

	meta := domainTenant.URLMetadata{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		meta.Description = strings.TrimSpace(desc)
	}
	if meta.Description == "" {
		if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
			meta.Description = strings.TrimSpace(desc)
		}
	}
	return meta, nil
}

// --- Mappers ---

func fromTenantModel(m tenantModel) domainTenant.Tenant {
	return domainTenant.Tenant{
		Name:         m.Name,
		Capacity:     m.Capacity,
		CurrentCount: m.CurrentCount,
		Status:       domainTenant.Status(m.Status),
		URL:          m.URL,
		Description:  m.Description,
		CreatedAt:    formatTimestamp(m.CreatedAt),
		UpdatedAt:    formatTimestamp(m.UpdatedAt),
	}
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
