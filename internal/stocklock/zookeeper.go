package stocklock

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/ariefcatur/go-retail-stock/internal/errs"
	"github.com/go-zookeeper/zk"
)

const DefaultZooKeeperRoot = "/stock_locks"

// ZooKeeperConn is the subset of *zk.Conn the lock store uses.
type ZooKeeperConn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	CreateTTL(path string, data []byte, flags int32, acl []zk.ACL, ttl time.Duration) (string, error)
	Delete(path string, version int32) error
}

// ZooKeeperStore keeps each lock as a TTL znode under root. The server must
// run with extendedTypesEnabled=true for TTL nodes.
type ZooKeeperStore struct {
	conn ZooKeeperConn
	root string
}

func NewZooKeeperStore(conn ZooKeeperConn, root string) (*ZooKeeperStore, error) {
	if root == "" {
		root = DefaultZooKeeperRoot
	}
	if _, err := conn.Create(root, []byte(""), 0, zk.WorldACL(zk.PermAll)); err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return nil, errs.Wrapf(err, "create lock root %s", root)
	}
	return &ZooKeeperStore{conn: conn, root: root}, nil
}

func (s *ZooKeeperStore) path(key string) string {
	return s.root + "/" + url.PathEscape(key)
}

// TryAcquire creates the znode. An existing node is contention even past its
// ttl; expired TTL nodes are left for the server to reap.
func (s *ZooKeeperStore) TryAcquire(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	_, err := s.conn.CreateTTL(s.path(key), []byte(holder), zk.FlagTTL, zk.WorldACL(zk.PermAll), ttl)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, zk.ErrNodeExists):
		return false, nil
	default:
		return false, errs.Wrapf(err, "create lock node %s", key)
	}
}

func (s *ZooKeeperStore) Release(_ context.Context, keys ...string) error {
	for _, k := range keys {
		if err := s.conn.Delete(s.path(k), -1); err != nil && !errors.Is(err, zk.ErrNoNode) {
			return errs.Wrapf(err, "delete lock node %s", k)
		}
	}
	return nil
}
