// Copyright (c) 2023-2024 Behnam Momeni
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://mozilla.org/MPL/2.0/.

// Package config is an adapter which accepts yaml formatted config
// files from its users and allows the rentacar binary to instantiate
// different components, from the adapter or use cases layers, using
// those loaded configuration settings.
// The parsed and validated configurations should be passed to their
// ultimate components as a series of individual params (for the
// mandatory items) and a series of functional options (for the
// optional items), so they may be accumulated and validated in another
// (possibly non-exported) config struct (or directly in the relevant
// end-component such as a UseCase instance).
package config

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/momeni/rentacar/pkg/adapter/config/settings"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres"
	"github.com/momeni/rentacar/pkg/adapter/db/postgres/schema"
	"github.com/momeni/rentacar/pkg/adapter/hash/scram"
	"github.com/momeni/rentacar/pkg/adapter/notif/mailer"
	"github.com/momeni/rentacar/pkg/adapter/paygw/httpgw"
	"github.com/momeni/rentacar/pkg/adapter/restful/gin"
	"github.com/momeni/rentacar/pkg/core/notif"
	"github.com/momeni/rentacar/pkg/core/paygw"
	"github.com/momeni/rentacar/pkg/core/repo"
	scrami "github.com/momeni/rentacar/pkg/core/scram"
	"github.com/momeni/rentacar/pkg/core/usecase/bookinguc"
	"gopkg.in/yaml.v3"
)

// These constants define the major and minor version of the
// configuration settings which are supported by the Config struct.
// Files with the same major and an equal or older minor version can
// be loaded, since newly introduced settings take their default
// values when they are absent.
const (
	Major = 1
	Minor = 0
)

// These environment variables override their corresponding settings
// from the configuration file, so secret values may be kept out of
// the on-disk file in the deployments which prefer that.
const (
	EnvPaymentAPIKey = "RENTACAR_PAYMENT_API_KEY"
	EnvPaymentSecret = "RENTACAR_PAYMENT_WEBHOOK_SECRET"
	EnvSMTPPassword  = "RENTACAR_SMTP_PASSWORD"
)

// Config contains all settings which are required by different parts
// of the project, such as adapters or use cases. It is preferred to
// implement Config with primitive fields or other structs which are
// defined locally, not models or structs which are defined in lower
// layers, so the configuration file format can be kept intact while
// other layers can change freely.
type Config struct {
	Database Database // PostgreSQL database connection settings
	Gin      Gin      // Gin-Gonic instantiation settings
	Booking  Booking  // booking use case settings
	Payment  Payment  // payment gateway client settings
	SMTP     SMTP     // notification emails delivery settings

	// Version is the `major.minor` version of this configuration
	// file format, as written in the file itself. It must be known
	// before interpreting the rest of the settings.
	Version string `yaml:"version"`
}

// Load function loads, validates, and normalizes the configuration
// file and returns its settings as an instance of the Config struct.
// Given path must belong to a configuration file which conforms with
// the latest known configuration settings format.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", path, err)
	}
	return c, nil
}

// Parse unmarshals the data byte slice and loads a Config instance
// assuming that it contains the Config settings. Extra items in the
// data will be ignored and missing items will take their default
// values. Thereafter, loaded Config will be validated and normalized
// in order to ensure that provided settings are acceptable (for
// example the major version which is reported by data settings must
// match with the Major constant of this package).
//
// Secret settings may be overridden by environment variables; see the
// Env* constants. Parse is the proper place for that replacement
// because it provides those settings which are fixed by each
// execution.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("unmarshalling yaml: %w", err)
	}
	if v, ok := os.LookupEnv(EnvPaymentAPIKey); ok {
		c.Payment.APIKey = v
	}
	if v, ok := os.LookupEnv(EnvPaymentSecret); ok {
		c.Payment.WebhookSecret = v
	}
	if v, ok := os.LookupEnv(EnvSMTPPassword); ok {
		c.SMTP.Password = v
	}
	if err := c.ValidateAndNormalize(); err != nil {
		return nil, fmt.Errorf("validating configs: %w", err)
	}
	return c, nil
}

// ValidateAndNormalize validates the configuration settings and
// returns an error if they were not acceptable. It can also modify
// settings in order to normalize them or replace some zero values
// with their expected default values (if any).
func (c *Config) ValidateAndNormalize() error {
	if err := c.validateVersion(); err != nil {
		return fmt.Errorf(
			"expecting version v%d.%d: %w", Major, Minor, err,
		)
	}
	settings.Nil2Zero(&c.Gin.Logger)
	settings.Nil2Zero(&c.Gin.Recovery)
	if err := c.Database.ValidateAndNormalize(); err != nil {
		return fmt.Errorf("validating database settings: %w", err)
	}
	if err := settings.VerifyRange(
		&c.Booking.RelocationBuffer,
		c.Booking.MinRelocationBuffer,
		c.Booking.MaxRelocationBuffer,
	); err != nil {
		return fmt.Errorf(
			"VerifyRange(relocation buffer=%v, minb=%v, maxb=%v): %w",
			err.Value,
			c.Booking.MinRelocationBuffer,
			c.Booking.MaxRelocationBuffer,
			err,
		)
	}
	if err := c.Payment.Validate(); err != nil {
		return fmt.Errorf("validating payment settings: %w", err)
	}
	if err := c.SMTP.Validate(); err != nil {
		return fmt.Errorf("validating smtp settings: %w", err)
	}
	return nil
}

func (c *Config) validateVersion() error {
	major, minor, ok := strings.Cut(c.Version, ".")
	if !ok {
		return fmt.Errorf("malformed version: %q", c.Version)
	}
	maj, err := strconv.Atoi(major)
	if err != nil {
		return fmt.Errorf("malformed major version: %q", major)
	}
	min, err := strconv.Atoi(minor)
	if err != nil {
		return fmt.Errorf("malformed minor version: %q", minor)
	}
	switch {
	case maj != Major:
		return fmt.Errorf("unsupported major version: %d", maj)
	case min > Minor:
		return fmt.Errorf("minor version is too recent: %d", min)
	}
	return nil
}

// ConnectionPool creates a database connection pool using the
// connection information which are kept in the `c` settings.
func (c *Config) ConnectionPool(
	ctx context.Context, r repo.Role,
) (repo.Pool, error) {
	p, err := c.Database.ConnectionPool(ctx, r)
	if err != nil {
		return nil, fmt.Errorf(
			"%#v.ConnectionPool: %w", c.Database, err,
		)
	}
	return p, nil
}

// NewSchemaRepo instantiates a fresh Schema repository which the
// `rentacar db init` command uses for the database bootstrap.
func (c *Config) NewSchemaRepo() repo.Schema {
	return schema.New()
}

// Database contains the database related configuration settings.
type Database struct {
	Host    string // domain name or IP address of the DBMS server
	Port    int    // port number of the DBMS server
	Name    string // database name, like rentacar1_0_0
	PassDir string `yaml:"pass-dir"` // path of the passwords dir

	// RoleSuffix specifies a possibly empty suffix for the database
	// role names. Normally, repo.AdminRole and repo.NormalRole roles
	// are used. In the parallel test cases, it is required to create
	// multiple non-colliding roles in the same database cluster and
	// so having a unique (per test) role suffix helps with parallelism.
	RoleSuffix repo.Role `yaml:"role-suffix,omitempty"`

	// AuthMethod specifies the database authentication method name.
	// This method indicates how passwords should be hashed before they
	// are stored in the database, so they may be used by an
	// authentication operation successfully.
	// Currently, only the scram-sha-256 method is supported and it is
	// also the default value.
	AuthMethod string `yaml:"auth-method,omitempty"`

	// hasher is instantiated based on the AuthMethod and is used by
	// the db init command for hashing role passwords properly (as
	// expected by the DBMS).
	hasher scrami.Hasher `yaml:"-"`
}

// ConnectionPool creates a database connection pool using the
// connection information which are kept in the `d` settings.
// Initially, the .pgpass file in the d.PassDir folder is checked
// which should conform with the pgpass format with lines like this:
//
//	host:port:dbname:role:password
//
// If a database connection could be established, created pool and nil
// error will be returned. Otherwise, passwords might have been updated
// during a previous incomplete bootstrap operation. So the .pgpass.new
// file in the same d.PassDir folder is checked too. If a connection
// could be established successfully, the .pgpass.new will be moved to
// the .pgpass file, so the .pgpass.new file may be overwritten safely
// by the subsequent bootstrap operations.
//
// The `d.RoleSuffix` will be appended to the given `r` role name too.
func (d Database) ConnectionPool(
	ctx context.Context, r repo.Role,
) (repo.Pool, error) {
	path := filepath.Join(d.PassDir, ".pgpass")
	u, err := d.ConnectionURL(r, path)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", path, err)
	}
	p, err := postgres.NewPool(ctx, u)
	if err == nil {
		return p, nil
	}
	fmt.Printf("failed to connect with %q: %v\n", path, err)
	newPath := filepath.Join(d.PassDir, ".pgpass.new")
	fmt.Printf("now, trying to connect with %q\n", newPath)
	u, err = d.ConnectionURL(r, newPath)
	if err != nil {
		return nil, fmt.Errorf("using %q pass-file: %w", newPath, err)
	}
	p, err = postgres.NewPool(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("can use neither pass-file: %w", err)
	}
	if err = os.Rename(newPath, path); err != nil {
		p.Close()
		return nil, fmt.Errorf("os.Rename: %w", err)
	}
	return p, nil
}

// ConnectionURL returns the database connection URL embedding the host,
// port, role name, database name, and password value. These items are
// directly taken from the `d` settings, but the role name which is
// specified by the `r` argument and the password value which is read
// from the given `path` file. Returned URL has the postgresql scheme.
// The `path` file may contain empty or `#`-commented lines in addition
// to the password specifying lines which should conform with the
// pgpass files format with lines like this:
//
//	host:port:dbname:role:password
//
// If the `path` file could be read and a password for the asked `r`
// role could be identified, a URL and a nil error will be returned.
// Otherwise, returned string will be empty and error will describe the
// wrapped error condition.
func (d Database) ConnectionURL(
	r repo.Role, path string,
) (string, error) {
	passLines, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading pass-file: %w", err)
	}
	r = r + d.RoleSuffix
	prfx := fmt.Sprintf("%s:%d:%s:%s:", d.Host, d.Port, d.Name, r)
	var pass string
	for _, line := range strings.Split(string(passLines), "\n") {
		if line == "" || line[0] == '#' {
			continue
		}
		if strings.HasPrefix(line, prfx) {
			pass = line[len(prfx):]
			break
		}
	}
	if pass == "" {
		return "", fmt.Errorf("no matching password line")
	}
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(string(r), pass),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	return u.String(), nil
}

// ConnectionInfo returns the host, port, and database name of the
// connection information which are kept in this Database instance.
func (d Database) ConnectionInfo() (dbName, host string, port int) {
	return d.Name, d.Host, d.Port
}

// SuffixedRole appends the configured role suffix (if any) to the
// given role name. Roles which are created by the db init command
// must match with the role names which the ConnectionPool method is
// going to use for authentication later.
func (d Database) SuffixedRole(r repo.Role) repo.Role {
	return r + d.RoleSuffix
}

// Hasher returns the password hasher which is instantiated based on
// the AuthMethod setting. The ValidateAndNormalize method is expected
// to be called beforehand, so the hasher has been created based on
// the normalized authentication method name.
func (d Database) Hasher() scrami.Hasher {
	return d.hasher
}

// RenewPasswords generates new secure passwords for the given roles
// and after recording them in a temporary file (i.e., .pgpass.new file
// in the `d.PassDir` directory), will use the `change` function in
// order to update the passwords of those `roles` in the database too.
// The `change` function argument should perform the update operation
// in a transaction which may or may not be committed when the
// RenewPasswords function returns. In case of a successful commitment,
// the temporary passwords file should be moved over the main passwords
// file (i.e., .pgpass file in the `d.PassDir` directory). Keeping the
// .pgpass file up-to-date, makes it possible to use ConnectionPool
// method again (both if the passwords are or are not updated
// successfully). This final file movement can be performed using the
// returned finalizer function.
//
// The `d.RoleSuffix` will be appended to the given role names too.
// The `change` function must add the same suffix to `roles` roles
// names in order to remain consistent with the in-file recorded
// information.
func (d Database) RenewPasswords(
	ctx context.Context,
	change func(
		ctx context.Context, roles []repo.Role, passwords []string,
	) error,
	roles ...repo.Role,
) (finalizer func() error, err error) {
	passwords := make([]string, len(roles))
	b := make([]byte, 16) // 128 bits
	enc := base64.RawStdEncoding
	p := make([]byte, enc.EncodedLen(len(b))) // for each password
	prfx := fmt.Sprintf("%s:%d:%s", d.Host, d.Port, d.Name)
	lines := make([]string, len(passwords))
	for i, r := range roles {
		if _, err = rand.Read(b); err != nil {
			return nil, fmt.Errorf("rand.Read for i=%d: %w", i, err)
		}
		enc.Encode(p, b)
		passwords[i] = string(p)
		r = r + d.RoleSuffix
		lines[i] = fmt.Sprintf("%s:%s:%s\n", prfx, r, passwords[i])
	}
	orgPath := filepath.Join(d.PassDir, ".pgpass")
	newPath := filepath.Join(d.PassDir, ".pgpass.new")
	finalizer = func() error {
		return os.Rename(newPath, orgPath)
	}
	err = os.WriteFile(newPath, []byte(strings.Join(lines, "")), 0o600)
	if err != nil {
		return nil, fmt.Errorf("writing %q file: %w", newPath, err)
	}
	if err = change(ctx, roles, passwords); err != nil {
		return nil, fmt.Errorf("passwords change callback: %w", err)
	}
	return finalizer, nil
}

// ValidateAndNormalize validates the database settings and returns an
// error if they were not acceptable. It can also modify settings in
// order to normalize them or replace some zero values with their
// expected default values (if any). So, it takes a pointer receiver
// instead of a non-reference receiver (in contrast to other methods).
func (d *Database) ValidateAndNormalize() error {
	switch am := d.AuthMethod; am {
	case "":
		d.AuthMethod = "scram-sha-256"
		fallthrough
	case "scram-sha-256":
		d.hasher = scram.SHA256()
	default:
		return fmt.Errorf(
			"unsupported database authentication method: %q", am,
		)
	}
	return nil
}

// Gin contains the gin-gonic related configuration settings.
// Fields are defined as pointers, so it is possible to detect if they
// are or are not initialized and fill absent items with their default
// values during the normalization.
type Gin struct {
	Logger   *bool // Whether to register the gin.Logger() middleware
	Recovery *bool // Whether to register the gin.Recovery() middleware

	// RateLimit configures the per-client token bucket which shields
	// the REST APIs. A non-positive requests-per-minute value disables
	// the rate limiting.
	RateLimit RateLimit `yaml:"rate-limit"`
}

// RateLimit contains the per-client rate limiting settings.
type RateLimit struct {
	RequestsPerMinute float64 `yaml:"requests-per-minute"`
	Burst             int     `yaml:"burst,omitempty"`
}

// NewEngine instantiates a new gin-gonic engine instance based on
// the `g` settings.
func (g Gin) NewEngine() *gin.Engine {
	middlewares := make([]gin.HandlerFunc, 0, 2)
	if *g.Logger {
		middlewares = append(middlewares, gin.Logger())
	}
	if *g.Recovery {
		middlewares = append(middlewares, gin.Recovery())
	}
	return gin.New(middlewares...)
}

// Booking contains the configuration settings for the booking use
// cases. Duration fields are defined as pointers, so it is possible
// to detect if they are or are not initialized; absent items let the
// use cases layer select its default values.
type Booking struct {
	// RelocationBuffer indicates the preparation gap which must
	// separate two bookings of one vehicle whenever the second pickup
	// branch differs from the first return branch.
	RelocationBuffer *settings.Duration `yaml:"relocation-buffer"`
	// MinRelocationBuffer is the inclusive minimum acceptable value
	// for the RelocationBuffer setting.
	// A missing value indicates that there is no lower bound.
	MinRelocationBuffer *settings.Duration `yaml:"relocation-buffer-minimum"`
	// MaxRelocationBuffer is the inclusive maximum acceptable value
	// for the RelocationBuffer setting.
	// A missing value indicates that there is no upper bound.
	MaxRelocationBuffer *settings.Duration `yaml:"relocation-buffer-maximum"`

	// HoldTTL indicates how long a pending hold blocks its vehicle
	// before expiring automatically.
	HoldTTL *settings.Duration `yaml:"hold-ttl"`

	// Currency is the ISO 4217 code which quoted prices are stated in.
	Currency string `yaml:"currency,omitempty"`

	// OperatorEmail receives a copy of the booking notifications.
	OperatorEmail string `yaml:"operator-email,omitempty"`
}

// NewUseCase instantiates a new booking use case based on the settings
// in the `b` struct.
func (b Booking) NewUseCase(
	p repo.Pool,
	v repo.Vehicles, l repo.Locations,
	r repo.Reservations, h repo.Holds,
	gw paygw.Gateway, nf notif.Notifier,
) (*bookinguc.UseCase, error) {
	opts := make([]bookinguc.Option, 0, 4)
	if b.RelocationBuffer != nil {
		d := time.Duration(*b.RelocationBuffer)
		opts = append(opts, bookinguc.WithRelocationBuffer(d))
	}
	if b.HoldTTL != nil {
		d := time.Duration(*b.HoldTTL)
		opts = append(opts, bookinguc.WithHoldTTL(d))
	}
	if b.Currency != "" {
		opts = append(opts, bookinguc.WithCurrency(b.Currency))
	}
	if b.OperatorEmail != "" {
		opts = append(
			opts, bookinguc.WithOperatorEmail(b.OperatorEmail),
		)
	}
	return bookinguc.New(p, v, l, r, h, gw, nf, opts...)
}

// Payment contains the payment gateway client configuration settings.
type Payment struct {
	// BaseURL is the gateway REST API base address, like
	// https://gateway.example.com/api/v2
	BaseURL string `yaml:"base-url"`

	// APIKey authenticates outgoing payment request creation calls.
	// It may be overridden by the RENTACAR_PAYMENT_API_KEY
	// environment variable.
	APIKey string `yaml:"api-key,omitempty"`

	// WebhookSecret is the shared secret which signs the incoming
	// webhook deliveries. It may be overridden by the
	// RENTACAR_PAYMENT_WEBHOOK_SECRET environment variable.
	WebhookSecret string `yaml:"webhook-secret,omitempty"`

	// Tolerance bounds the acceptable age of a signed webhook
	// delivery; older deliveries are rejected to limit replays.
	// A missing value lets the gateway client select its default.
	Tolerance *settings.Duration `yaml:"tolerance"`
}

// Validate checks the payment gateway settings without normalizing
// anything, since all absent optional items are handled by the
// gateway client constructor itself.
func (p Payment) Validate() error {
	switch {
	case p.BaseURL == "":
		return fmt.Errorf("base-url must be specified")
	case p.APIKey == "":
		return fmt.Errorf(
			"api-key must be specified (or set %s)", EnvPaymentAPIKey,
		)
	case p.WebhookSecret == "":
		return fmt.Errorf(
			"webhook-secret must be specified (or set %s)",
			EnvPaymentSecret,
		)
	}
	return nil
}

// NewGateway instantiates a payment gateway client based on the
// settings in the `p` struct.
func (p Payment) NewGateway() (*httpgw.Gateway, error) {
	opts := make([]httpgw.Option, 0, 1)
	if p.Tolerance != nil {
		d := time.Duration(*p.Tolerance)
		opts = append(opts, httpgw.WithTolerance(d))
	}
	return httpgw.New(p.BaseURL, p.APIKey, p.WebhookSecret, opts...)
}

// SMTP contains the notification emails delivery settings.
type SMTP struct {
	Host     string // domain name or IP address of the SMTP server
	Port     int    // port number of the SMTP server
	From     string // sender address of the notification emails
	Username string `yaml:",omitempty"` // SMTP auth username, if any
	// Password is the SMTP auth password; it may be overridden by the
	// RENTACAR_SMTP_PASSWORD environment variable.
	Password string `yaml:",omitempty"`
}

// Validate checks the SMTP settings.
func (s SMTP) Validate() error {
	switch {
	case s.Host == "":
		return fmt.Errorf("host must be specified")
	case s.Port <= 0 || s.Port > 65535:
		return fmt.Errorf("invalid port: %d", s.Port)
	case s.From == "":
		return fmt.Errorf("from address must be specified")
	}
	return nil
}

// NewNotifier instantiates an SMTP-backed notifier based on the
// settings in the `s` struct.
func (s SMTP) NewNotifier() notif.Notifier {
	return mailer.New(s.Host, s.Port, s.From, s.Username, s.Password)
}
