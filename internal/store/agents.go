package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/surge-downloader/swarmpeer/internal/history"
	"github.com/surge-downloader/swarmpeer/internal/strategy"
	"github.com/surge-downloader/swarmpeer/internal/swarm"
)

// ErrRoundOrder is returned when a round is appended out of sequence.
var ErrRoundOrder = errors.New("round appended out of order")

const (
	kindUpload   = "upload"
	kindDownload = "download"
)

// AgentInfo is one row of the agents table.
type AgentInfo struct {
	ID        string
	PeerID    swarm.PeerID
	CreatedAt time.Time
	Rounds    int
}

// EnsureAgent returns the agent id for peerID, registering it on first use.
func (s *Store) EnsureAgent(peerID swarm.PeerID) (string, error) {
	if peerID == "" {
		return "", fmt.Errorf("empty peer id")
	}
	var id string
	err := s.withTx(func(tx *sql.Tx) error {
		err := tx.QueryRow("SELECT id FROM agents WHERE peer_id = ?", string(peerID)).Scan(&id)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to query agent: %w", err)
		}
		id = uuid.New().String()
		if _, err := tx.Exec("INSERT INTO agents (id, peer_id, created_at) VALUES (?, ?, ?)",
			id, string(peerID), time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to insert agent: %w", err)
		}
		return nil
	})
	return id, err
}

// ListAgents returns all registered agents ordered by peer id.
func (s *Store) ListAgents() ([]AgentInfo, error) {
	rows, err := s.db.Query(`
		SELECT a.id, a.peer_id, a.created_at, COUNT(r.round)
		FROM agents a LEFT JOIN rounds r ON r.agent_id = a.id
		GROUP BY a.id ORDER BY a.peer_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	defer rows.Close()

	var out []AgentInfo
	for rows.Next() {
		var (
			info    AgentInfo
			peer    string
			created int64
		)
		if err := rows.Scan(&info.ID, &peer, &created, &info.Rounds); err != nil {
			return nil, err
		}
		info.PeerID = swarm.PeerID(peer)
		info.CreatedAt = time.Unix(created, 0)
		out = append(out, info)
	}
	return out, rows.Err()
}

// AppendRound records completed round number round. Rounds must be appended
// in order starting at 0.
func (s *Store) AppendRound(agentID string, round int, r history.Round) error {
	return s.withTx(func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM rounds WHERE agent_id = ?", agentID).Scan(&count); err != nil {
			return fmt.Errorf("failed to count rounds: %w", err)
		}
		if round != count {
			return fmt.Errorf("%w: got round %d, next is %d", ErrRoundOrder, round, count)
		}

		if _, err := tx.Exec("INSERT INTO rounds (agent_id, round, completed_at) VALUES (?, ?, ?)",
			agentID, round, time.Now().Unix()); err != nil {
			return fmt.Errorf("failed to insert round: %w", err)
		}

		stmt, err := tx.Prepare("INSERT INTO transfers (agent_id, round, kind, from_id, to_id, amount) VALUES (?, ?, ?, ?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, u := range r.Uploads {
			if _, err := stmt.Exec(agentID, round, kindUpload, string(u.From), string(u.To), u.Bandwidth); err != nil {
				return fmt.Errorf("failed to insert upload: %w", err)
			}
		}
		for _, d := range r.Downloads {
			if _, err := stmt.Exec(agentID, round, kindDownload, string(d.From), string(d.To), d.Blocks); err != nil {
				return fmt.Errorf("failed to insert download: %w", err)
			}
		}
		return nil
	})
}

// LoadHistory rebuilds the round log of agentID.
func (s *Store) LoadHistory(agentID string) (*history.Log, error) {
	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM rounds WHERE agent_id = ?", agentID).Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count rounds: %w", err)
	}
	rounds := make([]history.Round, count)

	rows, err := s.db.Query(`
		SELECT round, kind, from_id, to_id, amount FROM transfers
		WHERE agent_id = ? ORDER BY round, id`, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transfers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			round    int
			kind     string
			from, to string
			amount   int
		)
		if err := rows.Scan(&round, &kind, &from, &to, &amount); err != nil {
			return nil, err
		}
		if round < 0 || round >= count {
			return nil, fmt.Errorf("transfer for unknown round %d", round)
		}
		switch kind {
		case kindUpload:
			rounds[round].Uploads = append(rounds[round].Uploads, swarm.Upload{From: swarm.PeerID(from), To: swarm.PeerID(to), Bandwidth: amount})
		case kindDownload:
			rounds[round].Downloads = append(rounds[round].Downloads, swarm.Download{From: swarm.PeerID(from), To: swarm.PeerID(to), Blocks: amount})
		default:
			return nil, fmt.Errorf("unknown transfer kind %q", kind)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return history.NewLog(rounds...), nil
}

// SaveAgentState upserts the persisted strategy state of agentID.
func (s *Store) SaveAgentState(agentID string, st strategy.State) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode agent state: %w", err)
	}
	return s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO agent_state (agent_id, payload, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(agent_id) DO UPDATE SET
				payload=excluded.payload,
				updated_at=excluded.updated_at
		`, agentID, string(payload), time.Now().Unix())
		if err != nil {
			return fmt.Errorf("failed to upsert agent state: %w", err)
		}
		return nil
	})
}

// LoadAgentState returns the saved state, or ok=false when none exists.
func (s *Store) LoadAgentState(agentID string) (st strategy.State, ok bool, err error) {
	var payload string
	err = s.db.QueryRow("SELECT payload FROM agent_state WHERE agent_id = ?", agentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return strategy.State{}, false, nil
	}
	if err != nil {
		return strategy.State{}, false, fmt.Errorf("failed to query agent state: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &st); err != nil {
		return strategy.State{}, false, fmt.Errorf("failed to decode agent state: %w", err)
	}
	return st, true, nil
}
