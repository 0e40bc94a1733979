// internal/handlers/tables.go
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/jason-s-yu/fourcolor/internal/table"
	"github.com/sirupsen/logrus"
)

// TableServer exposes a table.Service over HTTP and WebSocket.
type TableServer struct {
	Service *table.Service
	Logger  *logrus.Logger
}

func NewTableServer(svc *table.Service, logger *logrus.Logger) *TableServer {
	return &TableServer{Service: svc, Logger: logger}
}

type createTableRequest struct {
	Name string `json:"name"`
	Rule string `json:"rule,omitempty"`
}

type actionResponse struct {
	Sequence int                  `json:"sequence"`
	Action   *models.ActionRecord `json:"action"`
	table.Snapshot
}

// decodeBody decodes an optional JSON body; an empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// CreateTableHandler opens a table with the caller seated as owner.
func (ts *TableServer) CreateTableHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	var req createTableRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad table request payload")
		return
	}
	if req.Rule != "" && req.Rule != ts.Service.RuleName() {
		writeError(w, http.StatusBadRequest, "unknown rule")
		return
	}

	info, err := ts.Service.Create(r.Context(), playerID, req.Name)
	if err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

// ListTablesHandler returns every table the server holds.
func (ts *TableServer) ListTablesHandler(w http.ResponseWriter, r *http.Request) {
	if _, ok := requirePlayer(w, r); !ok {
		return
	}
	writeJSON(w, http.StatusOK, ts.Service.List())
}

// JoinTableHandler seats the caller.
func (ts *TableServer) JoinTableHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	tableID, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}
	info, err := ts.Service.Join(r.Context(), tableID, playerID)
	if err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// LeaveTableHandler unseats the caller from a table that is not playing.
func (ts *TableServer) LeaveTableHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	tableID, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}
	if err := ts.Service.Leave(r.Context(), tableID, playerID); err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// StartTableHandler deals a new game. Owner only.
func (ts *TableServer) StartTableHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	tableID, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}
	if _, err := ts.Service.Start(r.Context(), tableID, playerID); err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	snap, err := ts.Service.Snapshot(tableID, playerID)
	if err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// TableStateHandler returns the table as seen by the caller.
func (ts *TableServer) TableStateHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	tableID, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}
	snap, err := ts.Service.Snapshot(tableID, playerID)
	if err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// SubmitActionHandler applies one action. Rejections come back as 409 with the engine's message.
func (ts *TableServer) SubmitActionHandler(w http.ResponseWriter, r *http.Request) {
	playerID, ok := requirePlayer(w, r)
	if !ok {
		return
	}
	tableID, ok := tableIDFromPath(w, r)
	if !ok {
		return
	}
	var action models.GameAction
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil || action.ActionType == "" {
		writeError(w, http.StatusBadRequest, "bad action payload")
		return
	}

	rec, err := ts.Service.Submit(r.Context(), tableID, playerID, action)
	if err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	snap, err := ts.Service.Snapshot(tableID, playerID)
	if err != nil {
		writeServiceError(w, ts.Logger, err)
		return
	}
	writeJSON(w, http.StatusOK, actionResponse{Sequence: rec.SequenceNumber, Action: rec, Snapshot: snap})
}
