package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/and161185/snapshare/internal/api"
	"github.com/and161185/snapshare/internal/appstate"
	"github.com/and161185/snapshare/internal/config"
	"github.com/and161185/snapshare/internal/kv"
	"github.com/and161185/snapshare/internal/offline"
	"github.com/and161185/snapshare/internal/remote"
)

// ---- token store ----

type tokenFile struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      uuid.UUID `json:"user_id"`
}

var errLoginRequired = errors.New("no valid token (login required)")

func saveToken(path string, tf tokenFile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(tf)
}

func loadToken(path string) (tokenFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tokenFile{}, errLoginRequired
		}
		return tokenFile{}, err
	}
	var tf tokenFile
	if err := json.Unmarshal(b, &tf); err != nil {
		return tokenFile{}, err
	}
	if tf.AccessToken == "" || tf.UserID == uuid.Nil || time.Now().After(tf.ExpiresAt) {
		return tokenFile{}, errLoginRequired
	}
	return tf, nil
}

// tokenExpiry reads exp from a JWT without verifying it; the server is the authority.
func tokenExpiry(tok string, fallback time.Time) time.Time {
	var claims jwt.RegisteredClaims
	_, _, err := jwt.NewParser().ParseUnverified(tok, &claims)
	if err != nil || claims.ExpiresAt == nil {
		return fallback
	}
	return claims.ExpiresAt.Time
}

// ---- session ----

// session bundles everything a command needs: the RPC client, the local store and its kv.
type session struct {
	cfg     config.Config
	log     *zap.Logger
	user    uuid.UUID
	cc      *grpc.ClientConn
	client  *api.Client
	storage kv.Storage
	closeKV func() error
	offline *offline.Cache
	store   *appstate.Store
}

type sessionOpts struct {
	auth  bool // require a saved token
	local bool // open the local store
	extra []grpc.DialOption
}

func openSession(ctx context.Context, cfg config.Config, log *zap.Logger, o sessionOpts) (*session, error) {
	s := &session{cfg: cfg, log: log}

	var token string
	if o.auth {
		tf, err := loadToken(cfg.TokenPath())
		if err != nil {
			return nil, err
		}
		token, s.user = tf.AccessToken, tf.UserID
	}

	cc, err := remote.Dial(remote.DialOptions{
		Addr: cfg.Server, CACert: cfg.CACert, Insecure: cfg.Insecure, Plaintext: cfg.Plaintext, Token: token,
	}, o.extra...)
	if err != nil {
		return nil, err
	}
	s.cc, s.client = cc, api.NewClient(cc)

	if o.local {
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			s.Close()
			return nil, err
		}
		if err := s.openStorage(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.offline = offline.New(s.storage)
		s.store = appstate.New(s.storage, remote.NewActions(s.client), s.user, log, appstate.WithOfflineCache(s.offline))
		if err := s.store.Load(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("load local state: %w", err)
		}
		s.store.RestoreSyncState(ctx)
	}
	return s, nil
}

func (s *session) openStorage(ctx context.Context) error {
	switch s.cfg.Storage {
	case config.StorageFile:
		f, err := kv.NewFile(s.cfg.FileStoreDir())
		if err != nil {
			return err
		}
		s.storage = f
	default:
		db, err := kv.OpenSQLite(ctx, s.cfg.StorePath())
		if err != nil {
			return err
		}
		s.storage, s.closeKV = db, db.Close
	}
	s.log.Debug("local storage opened", zap.String("backend", s.cfg.Storage))
	return nil
}

// Close releases the connection and the database.
func (s *session) Close() {
	if s.cc != nil {
		_ = s.cc.Close()
	}
	if s.closeKV != nil {
		_ = s.closeKV()
	}
}
