package docker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/farmhand/groundskeeper/pkg/database"
	"github.com/pkg/errors"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// DefaultPostgresVersion is the postgres image tag used when none is given
	DefaultPostgresVersion = "16"

	// DefaultClickHouseVersion is the clickhouse image tag used when none is given
	DefaultClickHouseVersion = "latest"

	// devCredential is the user, password and database name of dev postgres containers
	devCredential = "groundskeeper"

	startupTimeout = 5 * time.Minute
)

type (
	// Options describes the throwaway database to run.
	Options struct {
		// Driver is database.DriverPostgres or database.DriverClickHouse
		Driver string

		// Version is the image tag (a driver specific default when empty)
		Version string
	}

	// Container manages a disposable database container for idempotency
	// checks and local development.
	Container struct {
		options   Options
		container testcontainers.Container
		dsn       string
	}
)

// New creates a Container. Nothing is started until Start is called.
//
//	container := docker.New(docker.Options{Driver: database.DriverPostgres})
//	if err := container.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer container.Stop(ctx)
//
//	dsn, _ := container.DSN()
func New(opts Options) *Container {
	return &Container{options: opts}
}

// Driver returns the database/sql driver name matching the container.
func (c *Container) Driver() string {
	return c.options.Driver
}

// Start runs the container and waits until it accepts connections.
func (c *Container) Start(ctx context.Context) error {
	if c.container != nil {
		return errors.New("container is already running")
	}

	var err error
	switch c.options.Driver {
	case database.DriverPostgres:
		err = c.startPostgres(ctx)
	case database.DriverClickHouse:
		err = c.startClickHouse(ctx)
	default:
		return errors.Errorf("unsupported container driver: %s", c.options.Driver)
	}

	return err
}

// Stop terminates and removes the container. Stopping a container that is
// not running is a no-op.
func (c *Container) Stop(ctx context.Context) error {
	if c.container == nil {
		return nil
	}

	err := c.container.Terminate(ctx)
	c.container = nil
	c.dsn = ""

	if err != nil {
		return errors.Wrapf(err, "failed to stop %s container", c.options.Driver)
	}

	return nil
}

// DSN returns the connection string of the running container.
func (c *Container) DSN() (string, error) {
	if c.container == nil {
		return "", errors.New("container is not running")
	}

	return c.dsn, nil
}

// IsRunning returns true if the container is currently running
func (c *Container) IsRunning() bool {
	return c.container != nil
}

func (c *Container) startPostgres(ctx context.Context) error {
	version := c.options.Version
	if version == "" {
		version = DefaultPostgresVersion
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        fmt.Sprintf("postgres:%s-alpine", version),
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     devCredential,
				"POSTGRES_PASSWORD": devCredential,
				"POSTGRES_DB":       devCredential,
			},
			// postgres logs readiness twice: once for the init server and
			// once for the real one
			WaitingFor: wait.ForAll(
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
				wait.ForListeningPort("5432/tcp"),
			).WithDeadline(startupTimeout),
		},
		Started: true,
	})
	if err != nil {
		return errors.Wrap(err, "failed to start postgres container")
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return errors.Wrap(err, "failed to get container host")
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		return errors.Wrap(err, "failed to get container port")
	}

	c.container = container
	c.dsn = fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		devCredential,
		devCredential,
		net.JoinHostPort(host, port.Port()),
		devCredential,
	)
	return nil
}

func (c *Container) startClickHouse(ctx context.Context) error {
	version := c.options.Version
	if version == "" {
		version = DefaultClickHouseVersion
	}

	container, err := clickhouse.Run(ctx,
		fmt.Sprintf("clickhouse/clickhouse-server:%s-alpine", version),
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword(""),
		testcontainers.WithEnv(map[string]string{"CLICKHOUSE_DEFAULT_ACCESS_MANAGEMENT": "1"}),
		testcontainers.WithWaitStrategyAndDeadline(
			startupTimeout,
			wait.
				NewHTTPStrategy("/").
				WithPort("8123/tcp").
				WithStatusCodeMatcher(func(status int) bool {
					return status == 200
				}),
		),
	)
	if err != nil {
		return errors.Wrap(err, "failed to start ClickHouse container")
	}

	dsn, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return errors.Wrap(err, "failed to get connection string")
	}

	c.container = container
	c.dsn = dsn
	return nil
}
