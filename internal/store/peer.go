// Package store keeps track of the peers registered with the signaling
// server.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rudransh-shrivastava/peer-tac-toe/internal/db"
	"gorm.io/gorm"
)

// PeerRepository defines peer registry operations.
type PeerRepository interface {
	CreatePeer(ctx context.Context, id, remoteAddr string) (db.Peer, error)
	DeletePeer(ctx context.Context, id string) error
	GetPeers(ctx context.Context) ([]db.Peer, error)
	HasPeer(ctx context.Context, id string) (bool, error)
	DropAllPeers(ctx context.Context) error
}

type PeerStore struct {
	DB *gorm.DB
}

var _ PeerRepository = (*PeerStore)(nil)

func NewPeerStore(db *gorm.DB) *PeerStore {
	return &PeerStore{DB: db}
}

func (ps *PeerStore) CreatePeer(ctx context.Context, id, remoteAddr string) (db.Peer, error) {
	peer := db.Peer{ID: id, RemoteAddr: remoteAddr, ConnectedAt: time.Now().Unix()}
	if err := ps.DB.WithContext(ctx).Create(&peer).Error; err != nil {
		return db.Peer{}, err
	}
	return peer, nil
}

func (ps *PeerStore) DeletePeer(ctx context.Context, id string) error {
	return ps.DB.WithContext(ctx).Where("id = ?", id).Delete(&db.Peer{}).Error
}

func (ps *PeerStore) GetPeers(ctx context.Context) ([]db.Peer, error) {
	peers := []db.Peer{}
	err := ps.DB.WithContext(ctx).Order("connected_at, id").Find(&peers).Error
	return peers, err
}

func (ps *PeerStore) HasPeer(ctx context.Context, id string) (bool, error) {
	var peer db.Peer
	err := ps.DB.WithContext(ctx).Where("id = ?", id).First(&peer).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (ps *PeerStore) DropAllPeers(ctx context.Context) error {
	return ps.DB.WithContext(ctx).Where("1 = 1").Delete(&db.Peer{}).Error
}
