// internal/handlers/handlers_test.go
package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/jason-s-yu/fourcolor/internal/auth"
	"github.com/jason-s-yu/fourcolor/internal/game"
	"github.com/jason-s-yu/fourcolor/internal/models"
	"github.com/jason-s-yu/fourcolor/internal/table"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	t.Setenv("TOKEN_EXPIRE_TIME", "")
	require.NoError(t, auth.Init())

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	svc := table.NewService(table.Config{
		RuleName: "four_color_card",
		Rule:     game.DefaultConfig(),
	}, logger, table.WithClock(quartz.NewMock(t)), table.WithSeed(11))

	srv := httptest.NewServer(NewTableServer(svc, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

// call sends a JSON request with the given token and decodes a JSON response into out when non-nil.
func call(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}, out interface{}) int {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		buf = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, buf)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func guest(t *testing.T, srv *httptest.Server) (playerID, token string) {
	t.Helper()
	var g guestResponse
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/auth/guest", "", nil, &g))
	return g.PlayerID, g.Token
}

type seat struct {
	id, token string
}

// fullTable creates a table with four seated guests. seats[0] owns it.
func fullTable(t *testing.T, srv *httptest.Server) (uuid.UUID, []seat) {
	t.Helper()
	seats := make([]seat, 4)
	for i := range seats {
		seats[i].id, seats[i].token = guest(t, srv)
	}
	var info models.Table
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/tables/create", seats[0].token, map[string]string{"name": "east wind"}, &info))
	for _, s := range seats[1:] {
		require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/tables/"+info.ID.String()+"/join", s.token, nil, nil))
	}
	return info.ID, seats
}

func seatOf(seats []seat, id string) seat {
	for _, s := range seats {
		if s.id == id {
			return s
		}
	}
	return seat{}
}

func TestGuestHandler(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/auth/guest", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var g guestResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	assert.True(t, strings.HasPrefix(g.PlayerID, auth.GuestPrefix))

	var cookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == auth.CookieName {
			cookie = c
		}
	}
	require.NotNil(t, cookie)
	assert.Equal(t, g.Token, cookie.Value)
	assert.True(t, cookie.HttpOnly)

	// a valid token keeps its identity
	var again guestResponse
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, "/auth/guest", g.Token, nil, &again))
	assert.Equal(t, g.PlayerID, again.PlayerID)
}

func TestRequiresAuth(t *testing.T) {
	srv := newTestServer(t)

	var body errorBody
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodPost, "/tables/create", "", nil, &body))
	assert.Equal(t, "missing auth_token", body.Error)
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodGet, "/tables", "garbage", nil, nil))
}

func TestCreateTable(t *testing.T) {
	srv := newTestServer(t)
	owner, token := guest(t, srv)

	var info models.Table
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/tables/create", token, map[string]string{"name": "t1"}, &info))
	assert.Equal(t, owner, info.Owner)
	assert.Equal(t, []string{owner}, info.Players)
	assert.Equal(t, models.TableWaiting, info.Status)

	assert.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/tables/create", token, nil, nil), "body is optional")
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, "/tables/create", token, map[string]string{"rule": "mahjong"}, nil))
	assert.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/tables/create", token, map[string]string{"rule": "four_color_card"}, nil))

	var list []models.Table
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/tables", token, nil, &list))
	assert.Len(t, list, 3)
}

func TestTableNotFound(t *testing.T) {
	srv := newTestServer(t)
	_, token := guest(t, srv)

	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodPost, "/tables/"+uuid.NewString()+"/join", token, nil, nil))
	assert.Equal(t, http.StatusNotFound, call(t, srv, http.MethodGet, "/tables/"+uuid.NewString()+"/state", token, nil, nil))
	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodGet, "/tables/not-a-uuid/state", token, nil, nil))
}

func TestJoinFullTable(t *testing.T) {
	srv := newTestServer(t)
	tableID, _ := fullTable(t, srv)
	_, late := guest(t, srv)

	var body errorBody
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, "/tables/"+tableID.String()+"/join", late, nil, &body))
	assert.Equal(t, table.ErrTableFull.Error(), body.Error)
}

func TestLeaveTable(t *testing.T) {
	srv := newTestServer(t)
	tableID, seats := fullTable(t, srv)
	path := "/tables/" + tableID.String()

	assert.Equal(t, http.StatusNoContent, call(t, srv, http.MethodPost, path+"/leave", seats[3].token, nil, nil))
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, path+"/leave", seats[3].token, nil, nil))

	var snap table.Snapshot
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, path+"/state", seats[0].token, nil, &snap))
	assert.Len(t, snap.Table.Players, 3)
	assert.Nil(t, snap.State)
}

func TestStartAndPlay(t *testing.T) {
	srv := newTestServer(t)
	tableID, seats := fullTable(t, srv)
	path := "/tables/" + tableID.String()

	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodPost, path+"/start", seats[1].token, nil, nil))

	var snap table.Snapshot
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, path+"/start", seats[0].token, nil, &snap))
	require.NotNil(t, snap.State)
	assert.Equal(t, models.TablePlaying, snap.Table.Status)
	assert.Equal(t, 0, snap.Sequence)
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, path+"/start", seats[0].token, nil, nil))

	dealer := seatOf(seats, snap.State.CurrentPlayerTurn)
	require.NotEmpty(t, dealer.id)
	var other seat
	for _, s := range seats {
		if s.id != dealer.id {
			other = s
			break
		}
	}

	// out of turn
	var rejected errorBody
	status := call(t, srv, http.MethodPost, path+"/actions", other.token, models.GameAction{ActionType: game.ActionDraw}, &rejected)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Not your turn", rejected.Error)
	assert.Equal(t, game.ErrTurnOwnership.Error(), rejected.Category)

	var dealerView table.Snapshot
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, path+"/state", dealer.token, nil, &dealerView))
	var hand []models.Card
	for _, p := range dealerView.State.Players {
		if p.PlayerID == dealer.id {
			hand = p.Hand
		} else {
			assert.Nil(t, p.Hand, "other hands are hidden")
		}
	}
	require.Len(t, hand, 21)
	assert.Contains(t, dealerView.State.ValidActions, game.ActionPlayCards)

	discard := models.GameAction{ActionType: game.ActionPlayCards, ActionData: models.ActionData{Cards: hand[:1]}}
	var accepted actionResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPost, path+"/actions", dealer.token, discard, &accepted))
	assert.Equal(t, 1, accepted.Sequence)
	require.NotNil(t, accepted.Action)
	assert.Equal(t, game.ActionPlayCards, accepted.Action.ActionType)
	require.NotNil(t, accepted.State)
	assert.Equal(t, game.PhaseAwaitingResponse, accepted.State.Phase)

	assert.Equal(t, http.StatusBadRequest, call(t, srv, http.MethodPost, path+"/actions", dealer.token, map[string]string{}, nil))
	var unknown errorBody
	assert.Equal(t, http.StatusConflict, call(t, srv, http.MethodPost, path+"/actions", dealer.token, models.GameAction{ActionType: "shuffle"}, &unknown))
	assert.Equal(t, game.ErrUnknownAction.Error(), unknown.Category)
}

func TestActionBeforeStart(t *testing.T) {
	srv := newTestServer(t)
	tableID, seats := fullTable(t, srv)

	var body errorBody
	status := call(t, srv, http.MethodPost, "/tables/"+tableID.String()+"/actions", seats[0].token, models.GameAction{ActionType: game.ActionDraw}, &body)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, table.ErrNotPlaying.Error(), body.Error)
}
