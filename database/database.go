// Package database - Handles all interaction with ArangoDB and the in-memory document store
package database

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/arangodb/go-driver/v2/arangodb"
	"github.com/arangodb/go-driver/v2/connection"
	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/certiva/website-backend/internal/config"
	"github.com/certiva/website-backend/model"
)

// Collection names.
const (
	ColAdmins          = "admins"
	ColPages           = "pages"
	ColSections        = "sections"
	ColBlogs           = "blogs"
	ColContactOffices  = "contact_offices"
	ColIndustryStats   = "industry_stats"
	ColCareers         = "careers"
	ColInquiries       = "inquiries"
	ColJobApplications = "job_applications"
)

// CollectionNames lists every document collection in creation order.
var CollectionNames = []string{
	ColAdmins, ColPages, ColSections, ColBlogs, ColContactOffices,
	ColIndustryStats, ColCareers, ColInquiries, ColJobApplications,
}

// DBConnection is the structure that defined the database engine and collections
type DBConnection struct {
	Collections map[string]arangodb.Collection
	Database    arangodb.Database
}

// Define a struct to hold the index definition
type indexConfig struct {
	Collection string
	IdxName    string
	IdxFields  []string
	Unique     bool
	Sparse     bool
}

var indexes = []indexConfig{
	{Collection: ColAdmins, IdxName: "admin_email", IdxFields: []string{"email"}, Unique: true},
	{Collection: ColPages, IdxName: "page_slug", IdxFields: []string{"slug"}, Unique: true},
	{Collection: ColSections, IdxName: "section_name", IdxFields: []string{"name"}, Unique: true},
	{Collection: ColSections, IdxName: "section_order", IdxFields: []string{"order"}},
	{Collection: ColBlogs, IdxName: "blog_slug", IdxFields: []string{"slug"}, Unique: true},
	{Collection: ColBlogs, IdxName: "blog_published", IdxFields: []string{"published", "published_at"}},
	{Collection: ColBlogs, IdxName: "blog_category", IdxFields: []string{"category"}, Sparse: true},
	{Collection: ColBlogs, IdxName: "blog_tags", IdxFields: []string{"tags[*]"}},
	{Collection: ColContactOffices, IdxName: "office_region", IdxFields: []string{"region", "order"}},
	{Collection: ColIndustryStats, IdxName: "industry_stat_industry", IdxFields: []string{"industry", "order"}},
	{Collection: ColCareers, IdxName: "career_slug", IdxFields: []string{"slug"}, Unique: true},
	{Collection: ColCareers, IdxName: "career_active", IdxFields: []string{"is_active"}},
	{Collection: ColInquiries, IdxName: "inquiry_status", IdxFields: []string{"status", "created_at"}},
	{Collection: ColJobApplications, IdxName: "application_career", IdxFields: []string{"career_key"}},
}

// uniqueFields returns the unique index fields of a collection, used by the
// memory store to mirror the ArangoDB constraints.
func uniqueFields(collection string) []string {
	var out []string
	for _, idx := range indexes {
		if idx.Collection == collection && idx.Unique {
			out = append(out, idx.IdxFields...)
		}
	}
	return out
}

func dbConnectionConfig(endpoint connection.Endpoint, dbuser string, dbpass string) connection.HttpConfiguration {
	return connection.HttpConfiguration{
		Authentication: connection.NewBasicAuth(dbuser, dbpass),
		Endpoint:       endpoint,
		ContentType:    connection.ApplicationJSON,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: true, // #nosec G402
			},
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 90 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// InitializeDatabase connects to ArangoDB, retrying with exponential backoff
// until ctx is done, then creates the database, collections and indexes.
func InitializeDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (DBConnection, error) {
	const initialInterval = 2 * time.Second
	const maxInterval = 1 * time.Minute

	var client arangodb.Client

	// Configure exponential backoff
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialInterval
	bo.MaxInterval = maxInterval
	bo.MaxElapsedTime = 0 // retry until ctx is cancelled

	err := backoff.RetryNotify(func() error {
		logger.Info("Attempting to connect to ArangoDB", zap.String("url", cfg.URL))
		endpoint := connection.NewRoundRobinEndpoints([]string{cfg.URL})
		conn := connection.NewHttpConnection(dbConnectionConfig(endpoint, cfg.User, cfg.Password))

		client = arangodb.NewClient(conn)

		versionInfo, err := client.Version(ctx)
		if err != nil {
			return err
		}

		logger.Sugar().Infof("Database has version '%s' and license '%s'", versionInfo.Version, versionInfo.License)
		return nil
	}, backoff.WithContext(bo, ctx), func(err error, next time.Duration) {
		logger.Warn("Retrying connection to ArangoDB", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return DBConnection{}, fmt.Errorf("connect to arangodb: %w", err)
	}

	db, err := ensureDatabase(ctx, client, cfg.Name)
	if err != nil {
		return DBConnection{}, err
	}

	collections := make(map[string]arangodb.Collection, len(CollectionNames))
	for _, name := range CollectionNames {
		col, err := ensureCollection(ctx, db, name)
		if err != nil {
			return DBConnection{}, err
		}
		collections[name] = col
	}

	for _, idx := range indexes {
		if err := ensureIndex(ctx, collections[idx.Collection], idx, logger); err != nil {
			return DBConnection{}, err
		}
	}

	return DBConnection{Collections: collections, Database: db}, nil
}

func ensureDatabase(ctx context.Context, client arangodb.Client, name string) (arangodb.Database, error) {
	exists, err := client.DatabaseExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check database %s: %w", name, err)
	}
	if exists {
		var options arangodb.GetDatabaseOptions
		db, err := client.GetDatabase(ctx, name, &options)
		if err != nil {
			return nil, fmt.Errorf("get database %s: %w", name, err)
		}
		return db, nil
	}
	db, err := client.CreateDatabase(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", name, err)
	}
	return db, nil
}

func ensureCollection(ctx context.Context, db arangodb.Database, name string) (arangodb.Collection, error) {
	exists, err := db.CollectionExists(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", name, err)
	}
	if exists {
		var options arangodb.GetCollectionOptions
		col, err := db.GetCollection(ctx, name, &options)
		if err != nil {
			return nil, fmt.Errorf("use collection %s: %w", name, err)
		}
		return col, nil
	}
	col, err := db.CreateCollectionV2(ctx, name, nil)
	if err != nil {
		return nil, fmt.Errorf("create collection %s: %w", name, err)
	}
	return col, nil
}

func ensureIndex(ctx context.Context, col arangodb.Collection, idx indexConfig, logger *zap.Logger) error {
	if existing, err := col.Indexes(ctx); err == nil {
		for _, index := range existing {
			if index.Name == idx.IdxName {
				return nil
			}
		}
	}

	unique, sparse := idx.Unique, idx.Sparse
	indexOptions := arangodb.CreatePersistentIndexOptions{
		Unique: &unique,
		Sparse: &sparse,
		Name:   idx.IdxName,
	}
	if _, _, err := col.EnsurePersistentIndex(ctx, idx.IdxFields, &indexOptions); err != nil {
		return fmt.Errorf("create index %s on %s: %w", idx.IdxName, idx.Collection, err)
	}
	logger.Sugar().Infof("Created index: %s on %s.%v", idx.IdxName, idx.Collection, idx.IdxFields)
	return nil
}

// Stores groups the document stores used by the API.
type Stores struct {
	Admins          Store[model.Admin]
	Pages           Store[model.Page]
	Sections        Store[model.Section]
	Blogs           Store[model.Blog]
	ContactOffices  Store[model.ContactOffice]
	IndustryStats   Store[model.IndustryStat]
	Careers         Store[model.Career]
	Inquiries       Store[model.Inquiry]
	JobApplications Store[model.JobApplication]
}

// NewArangoStores returns stores backed by conn.
func NewArangoStores(conn DBConnection) *Stores {
	return &Stores{
		Admins:          NewArangoStore[model.Admin](conn, ColAdmins),
		Pages:           NewArangoStore[model.Page](conn, ColPages),
		Sections:        NewArangoStore[model.Section](conn, ColSections),
		Blogs:           NewArangoStore[model.Blog](conn, ColBlogs),
		ContactOffices:  NewArangoStore[model.ContactOffice](conn, ColContactOffices),
		IndustryStats:   NewArangoStore[model.IndustryStat](conn, ColIndustryStats),
		Careers:         NewArangoStore[model.Career](conn, ColCareers),
		Inquiries:       NewArangoStore[model.Inquiry](conn, ColInquiries),
		JobApplications: NewArangoStore[model.JobApplication](conn, ColJobApplications),
	}
}

// NewMemoryStores returns empty in-memory stores with the same unique
// constraints as the ArangoDB indexes.
func NewMemoryStores() *Stores {
	return &Stores{
		Admins:          NewMemoryStore[model.Admin](ColAdmins, uniqueFields(ColAdmins)...),
		Pages:           NewMemoryStore[model.Page](ColPages, uniqueFields(ColPages)...),
		Sections:        NewMemoryStore[model.Section](ColSections, uniqueFields(ColSections)...),
		Blogs:           NewMemoryStore[model.Blog](ColBlogs, uniqueFields(ColBlogs)...),
		ContactOffices:  NewMemoryStore[model.ContactOffice](ColContactOffices, uniqueFields(ColContactOffices)...),
		IndustryStats:   NewMemoryStore[model.IndustryStat](ColIndustryStats, uniqueFields(ColIndustryStats)...),
		Careers:         NewMemoryStore[model.Career](ColCareers, uniqueFields(ColCareers)...),
		Inquiries:       NewMemoryStore[model.Inquiry](ColInquiries, uniqueFields(ColInquiries)...),
		JobApplications: NewMemoryStore[model.JobApplication](ColJobApplications, uniqueFields(ColJobApplications)...),
	}
}

// Open returns the stores selected by cfg.Driver.
func Open(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Stores, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("Using in-memory document store; data is lost on restart")
		return NewMemoryStores(), nil
	case "arango", "":
		conn, err := InitializeDatabase(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return NewArangoStores(conn), nil
	}
	return nil, fmt.Errorf("database: unknown driver %q", cfg.Driver)
}
