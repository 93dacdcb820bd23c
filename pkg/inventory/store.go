// Package inventory reads the sites EasyEngine manages on this host from
// its SQLite database. The database is owned by EasyEngine; it is only ever
// opened read-only here.
package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// DefaultPath is where EasyEngine keeps its database.
const DefaultPath = "/opt/easyengine/db/ee.sqlite"

// Site is one row of EasyEngine's sites table, reduced to what the
// Dashboard needs.
type Site struct {
	Domain          string
	Type            string
	AppSubType      string
	FSPath          string
	ContainerFSPath string
	Enabled         bool
	SSL             string
	PHPVersion      string
	DBName          string
	AliasDomains    string
	AdminTools      int64
	Mailhog         int64
	RedisCache      int64
}

// HasSSL reports whether the site has any certificate type recorded.
func (s Site) HasSSL() bool {
	return s.SSL != "" && s.SSL != "0"
}

const siteColumns = `
	site_url,
	COALESCE(site_type, '') AS site_type,
	COALESCE(app_sub_type, '') AS app_sub_type,
	COALESCE(site_fs_path, '') AS site_fs_path,
	COALESCE(site_container_fs_path, '') AS site_container_fs_path,
	COALESCE(site_enabled, 0) AS site_enabled,
	COALESCE(site_ssl, '') AS site_ssl,
	COALESCE(php_version, '') AS php_version,
	COALESCE(db_name, '') AS db_name,
	COALESCE(alias_domains, '') AS alias_domains,
	COALESCE(admin_tools, 0) AS admin_tools,
	COALESCE(mailhog_enabled, 0) AS mailhog_enabled,
	COALESCE(cache_nginx_fullpage, 0) AS cache_nginx_fullpage`

// Store is a read-only handle on the EasyEngine database. The file is opened
// on first use, so creating a Store never touches the disk. Methods are safe
// for concurrent use but serialize on a single connection.
type Store struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	path string
}

// New returns a Store for the database at path.
func New(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Close releases the connection, if one was opened.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return fmt.Errorf("inventory: closing %s: %w", s.path, err)
	}
	return nil
}

// open must be called with s.mu held.
func (s *Store) open() error {
	if s.conn != nil {
		return nil
	}

	conn, err := sqlite.OpenConn(s.path, sqlite.OpenReadOnly)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA busy_timeout=5000", nil); err != nil {
		conn.Close()
		return fmt.Errorf("PRAGMA busy_timeout: %w", err)
	}
	s.conn = conn
	return nil
}

// Sites returns every site EasyEngine knows about, in creation order.
func (s *Store) Sites(ctx context.Context) ([]Site, error) {
	var sites []Site
	err := s.query(ctx, "SELECT"+siteColumns+" FROM sites ORDER BY id", nil, func(stmt *sqlite.Stmt) error {
		sites = append(sites, scanSite(stmt))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inventory: listing sites: %w", err)
	}
	return sites, nil
}

// Site returns the site with the given domain, or nil if there is none.
func (s *Store) Site(ctx context.Context, domain string) (*Site, error) {
	var site *Site
	err := s.query(ctx, "SELECT"+siteColumns+" FROM sites WHERE site_url = ? LIMIT 1", []any{domain}, func(stmt *sqlite.Stmt) error {
		found := scanSite(stmt)
		site = &found
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("inventory: looking up %s: %w", domain, err)
	}
	return site, nil
}

// AuthCount returns how many HTTP basic auth credentials are stored for domain.
func (s *Store) AuthCount(ctx context.Context, domain string) (int, error) {
	var count int
	err := s.query(ctx, "SELECT COUNT(*) FROM auth_users WHERE site_url = ?", []any{domain}, func(stmt *sqlite.Stmt) error {
		count = stmt.ColumnInt(0)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("inventory: counting auths for %s: %w", domain, err)
	}
	return count, nil
}

func (s *Store) query(ctx context.Context, query string, args []any, fn func(*sqlite.Stmt) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return err
	}

	s.conn.SetInterrupt(ctx.Done())
	defer s.conn.SetInterrupt(nil)

	return sqlitex.Execute(s.conn, query, &sqlitex.ExecOptions{
		Args:       args,
		ResultFunc: fn,
	})
}

func scanSite(stmt *sqlite.Stmt) Site {
	return Site{
		Domain:          strings.TrimSpace(stmt.GetText("site_url")),
		Type:            stmt.GetText("site_type"),
		AppSubType:      stmt.GetText("app_sub_type"),
		FSPath:          stmt.GetText("site_fs_path"),
		ContainerFSPath: stmt.GetText("site_container_fs_path"),
		Enabled:         stmt.GetInt64("site_enabled") != 0,
		SSL:             stmt.GetText("site_ssl"),
		PHPVersion:      stmt.GetText("php_version"),
		DBName:          stmt.GetText("db_name"),
		AliasDomains:    stmt.GetText("alias_domains"),
		AdminTools:      stmt.GetInt64("admin_tools"),
		Mailhog:         stmt.GetInt64("mailhog_enabled"),
		RedisCache:      stmt.GetInt64("cache_nginx_fullpage"),
	}
}
