// Package storage opens the durable token stores of the configured driver.
package storage

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"

	"github.com/trezcool/classroom/core"
	"github.com/trezcool/classroom/storage/filestore"
	"github.com/trezcool/classroom/storage/inmem"
	"github.com/trezcool/classroom/storage/redisstore"
)

// Provider hands out one TokenStore per namespace.
// A namespace is the storage origin: the backend origin, plus the browser client id for the web host.
type Provider struct {
	conf  core.StorageConfig
	redis *redis.Client

	mu     sync.Mutex
	memory map[string]*inmem.Store
}

func NewProvider(ctx context.Context, conf core.StorageConfig) (*Provider, error) {
	p := &Provider{conf: conf}
	switch conf.Driver {
	case core.StorageMemory:
		p.memory = make(map[string]*inmem.Store)
	case core.StorageFile:
		if conf.Dir == "" {
			return nil, errors.New("storage.dir is required by the file driver")
		}
	case core.StorageRedis:
		p.redis = redis.NewClient(&redis.Options{Addr: conf.RedisAddr, DB: conf.RedisDB})
		if err := p.redis.Ping(ctx).Err(); err != nil {
			_ = p.redis.Close()
			return nil, errors.Wrapf(err, "pinging redis at %s", conf.RedisAddr)
		}
	default:
		return nil, errors.Errorf("unknown storage driver %q", conf.Driver)
	}
	return p, nil
}

func (p *Provider) Store(namespace string) core.TokenStore {
	switch p.conf.Driver {
	case core.StorageFile:
		return filestore.NewStore(filepath.Join(p.conf.Dir, sanitize(namespace)+".json"))
	case core.StorageRedis:
		return redisstore.NewStore(p.redis, namespace)
	default:
		p.mu.Lock()
		defer p.mu.Unlock()
		store, ok := p.memory[namespace]
		if !ok {
			store = inmem.NewStore()
			p.memory[namespace] = store
		}
		return store
	}
}

// Forget drops the memory store of `namespace`; stores of the other drivers live outside the process.
func (p *Provider) Forget(namespace string) {
	if p.conf.Driver != core.StorageMemory {
		return
	}
	p.mu.Lock()
	delete(p.memory, namespace)
	p.mu.Unlock()
}

func (p *Provider) Close() error {
	if p.redis != nil {
		return p.redis.Close()
	}
	return nil
}

// Origin returns the storage namespace of a backend: "<scheme>:<host>[:<port>]".
func Origin(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return sanitize(baseURL)
	}
	return u.Scheme + ":" + u.Host
}

var fileNameReplacer = strings.NewReplacer(":", "_", "/", "_", "\\", "_", "..", "_")

func sanitize(name string) string {
	return fileNameReplacer.Replace(name)
}
