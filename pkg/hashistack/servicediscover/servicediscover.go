package servicediscover

import (
	"context"
	"fmt"
	"strconv"

	"vaultbooks/pkg/config"

	"github.com/hashicorp/consul/api"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("servicediscover",
	fx.Provide(NewConfig, NewClient, NewRegistry),
	fx.Invoke(registerConsul),
)

type ServiceRegistry interface {
	Register(ctx context.Context) error
	Deregister(ctx context.Context) error
}

func NewConfig(cfg *config.Config) *api.Config {
	c := api.DefaultConfig()
	if cfg.Consul.Addr != "" {
		c.Address = cfg.Consul.Addr
	}
	return c
}

func NewClient(c *api.Config) (*api.Client, error) {
	return api.NewClient(c)
}

type consulRegistry struct {
	client  *api.Client
	service *api.AgentServiceRegistration
}

func NewRegistry(cfg *config.Config, client *api.Client) (ServiceRegistry, error) {
	port, err := strconv.Atoi(cfg.Server.Addr)
	if err != nil {
		return nil, fmt.Errorf("http server addr must be a port: %w", err)
	}

	host := cfg.Consul.Host
	if host == "" {
		host = "127.0.0.1"
	}

	return &consulRegistry{
		client:  client,
		service: NewServiceRegistration(cfg.AppName, fmt.Sprintf("%s-%d", cfg.AppName, cfg.NodeID), host, port),
	}, nil
}

// NewServiceRegistration describes this process with an HTTP readiness check.
func NewServiceRegistration(serviceName, serviceID, host string, port int) *api.AgentServiceRegistration {
	return &api.AgentServiceRegistration{
		ID:      serviceID,
		Name:    serviceName,
		Address: host,
		Port:    port,
		Check: &api.AgentServiceCheck{
			HTTP:     fmt.Sprintf("http://%s:%d/health/readiness", host, port),
			Interval: "10s",
			Timeout:  "5s",
		},
	}
}

func (r *consulRegistry) Register(ctx context.Context) error {
	return r.client.Agent().ServiceRegister(r.service)
}

func (r *consulRegistry) Deregister(ctx context.Context) error {
	return r.client.Agent().ServiceDeregister(r.service.ID)
}

func registerConsul(lc fx.Lifecycle, cfg *config.Config, registry ServiceRegistry) {
	if !cfg.Consul.Register {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := registry.Register(ctx); err != nil {
				zap.L().Error("failed to register service in consul", zap.Error(err))
				return err
			}
			zap.L().Info("service registered in consul", zap.String("service", cfg.AppName))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return registry.Deregister(ctx)
		},
	})
}
