package auth

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/ExtMailer/ExtMailer/internal/db/models"
)

// ErrLDAPDisabled is returned when LDAP authentication is disabled via configuration.
var ErrLDAPDisabled = errors.New("ldap authentication is disabled")

// LDAPConfig configures LDAP or Active Directory authentication.
type LDAPConfig struct {
	Enabled    bool
	Host       string
	Port       int
	UseSSL     bool // ldaps://
	UseTLS     bool // StartTLS on a plain connection
	SkipVerify bool

	// BindDN and BindPassword are the service account used for searches.
	// Empty means anonymous search.
	BindDN       string
	BindPassword string

	// UserFilter replaces {username}, e.g. "(uid={username})".
	BaseDN     string
	UserFilter string

	// GroupFilter replaces {userdn}, e.g. "(member={userdn})".
	// Groups are not synchronized when GroupBaseDN is empty.
	GroupBaseDN string
	GroupFilter string

	UsernameAttr  string
	EmailAttr     string
	FirstNameAttr string
	LastNameAttr  string
	GroupNameAttr string

	Timeout int // seconds

	// DefaultRole is given to accounts on first login. Defaults to reader.
	DefaultRole string
}

// LDAPProvider handles LDAP authentication.
type LDAPProvider struct {
	config LDAPConfig
	db     *gorm.DB
}

// NewLDAPProvider creates a new LDAP provider with attribute defaults applied.
func NewLDAPProvider(config LDAPConfig, db *gorm.DB) (*LDAPProvider, error) {
	if !config.Enabled {
		return nil, ErrLDAPDisabled
	}

	setDefault := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}

	setDefault(&config.UsernameAttr, "uid")
	setDefault(&config.EmailAttr, "mail")
	setDefault(&config.FirstNameAttr, "givenName")
	setDefault(&config.LastNameAttr, "sn")
	setDefault(&config.GroupNameAttr, "cn")
	setDefault(&config.UserFilter, "(uid={username})")
	setDefault(&config.GroupFilter, "(member={userdn})")
	setDefault(&config.DefaultRole, RoleReader)

	if config.Timeout == 0 {
		config.Timeout = 10
	}

	return &LDAPProvider{config: config, db: db}, nil
}

// Connect dials the directory, upgrading to TLS when configured.
func (p *LDAPProvider) Connect() (*ldap.Conn, error) {
	scheme := "ldap://"
	if p.config.UseSSL {
		scheme = "ldaps://"
	}

	var tlsConfig *tls.Config
	if p.config.UseSSL || p.config.UseTLS {
		tlsConfig = &tls.Config{
			InsecureSkipVerify: p.config.SkipVerify, //nolint:gosec
			ServerName:         p.config.Host,
		}
	}

	url := scheme + net.JoinHostPort(p.config.Host, strconv.Itoa(p.config.Port))

	conn, err := ldap.DialURL(url, ldap.DialWithTLSConfig(tlsConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	if !p.config.UseSSL && p.config.UseTLS {
		if err = conn.StartTLS(tlsConfig); err != nil {
			p.close(conn)

			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}

	conn.SetTimeout(time.Duration(p.config.Timeout) * time.Second)

	return conn, nil
}

func (p *LDAPProvider) close(conn *ldap.Conn) {
	if err := conn.Close(); err != nil {
		log.Warn().Err(err).Msg("failed to close LDAP connection")
	}
}

func (p *LDAPProvider) bindService(conn *ldap.Conn) error {
	if p.config.BindDN == "" {
		return nil
	}

	if err := conn.Bind(p.config.BindDN, p.config.BindPassword); err != nil {
		return fmt.Errorf("failed to bind with service account: %w", err)
	}

	return nil
}

// Authenticate binds as the user and returns the provisioned account and
// the DNs of the user's directory groups.
func (p *LDAPProvider) Authenticate(username, password string) (*models.User, []string, error) {
	// an empty password would be an anonymous bind that always succeeds
	if password == "" {
		return nil, nil, ErrInvalidPassword
	}

	conn, err := p.Connect()
	if err != nil {
		return nil, nil, err
	}
	defer p.close(conn)

	if err = p.bindService(conn); err != nil {
		return nil, nil, err
	}

	entry, err := p.searchUser(conn, username)
	if err != nil {
		return nil, nil, err
	}

	if err = conn.Bind(entry.DN, password); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidPassword, err)
	}

	if err = p.bindService(conn); err != nil {
		return nil, nil, err
	}

	groups, err := p.searchGroups(conn, entry.DN)
	if err != nil {
		return nil, nil, err
	}

	user, err := provisionUser(p.db, models.User{
		Username:   username,
		Email:      entry.GetAttributeValue(p.config.EmailAttr),
		FirstName:  entry.GetAttributeValue(p.config.FirstNameAttr),
		LastName:   entry.GetAttributeValue(p.config.LastNameAttr),
		AuthSource: models.AuthSourceLDAP,
		ExternalID: entry.DN,
	}, p.config.DefaultRole)
	if err != nil {
		return nil, nil, err
	}

	return user, groups, nil
}

func (p *LDAPProvider) searchUser(conn *ldap.Conn, username string) (*ldap.Entry, error) {
	req := ldap.NewSearchRequest(
		p.config.BaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		2, //nolint:mnd
		p.config.Timeout,
		false,
		strings.ReplaceAll(p.config.UserFilter, "{username}", ldap.EscapeFilter(username)),
		[]string{p.config.UsernameAttr, p.config.EmailAttr, p.config.FirstNameAttr, p.config.LastNameAttr},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil && !ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
		return nil, fmt.Errorf("failed to search for user: %w", err)
	}

	if res == nil || len(res.Entries) == 0 {
		return nil, ErrUserNotFound
	}

	if len(res.Entries) > 1 {
		return nil, ErrMultipleUsersFound
	}

	return res.Entries[0], nil
}

func (p *LDAPProvider) searchGroups(conn *ldap.Conn, userDN string) ([]string, error) {
	if p.config.GroupBaseDN == "" {
		return nil, nil
	}

	req := ldap.NewSearchRequest(
		p.config.GroupBaseDN,
		ldap.ScopeWholeSubtree,
		ldap.NeverDerefAliases,
		0,
		p.config.Timeout,
		false,
		strings.ReplaceAll(p.config.GroupFilter, "{userdn}", ldap.EscapeFilter(userDN)),
		[]string{p.config.GroupNameAttr},
		nil,
	)

	res, err := conn.Search(req)
	if err != nil {
		return nil, fmt.Errorf("failed to search for groups: %w", err)
	}

	groups := make([]string, 0, len(res.Entries))
	for _, entry := range res.Entries {
		groups = append(groups, entry.DN)
	}

	return groups, nil
}

// TestConnection dials and binds with the service account.
func (p *LDAPProvider) TestConnection() error {
	conn, err := p.Connect()
	if err != nil {
		return err
	}
	defer p.close(conn)

	return p.bindService(conn)
}
