package controller

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"lingualink/internal/game"
	"lingualink/internal/logger"
	"lingualink/internal/protocol"
	"lingualink/internal/router"
	"lingualink/pkg/interfaces"
	"lingualink/pkg/types"
)

// Games serves mini-games to players and game CRUD to admins.
type Games struct {
	base
	games   interfaces.GameRepository
	results interfaces.ResultRepository
	images  *game.Inliner
}

func NewGames(d Deps) *Games {
	return &Games{base: newBase(d, "games"), games: d.Repos.Games, results: d.Repos.Results, images: d.Images}
}

func (g *Games) Routes() Routes {
	return Routes{
		protocol.GameListRequest:      g.List,
		protocol.GameLevelListRequest: g.Levels,
		protocol.GameDataRequest:      g.Data,
		protocol.GameSubmitRequest:    g.Submit,
		protocol.GameCreateRequest:    g.Create,
		protocol.GameUpdateRequest:    g.Update,
		protocol.GameDeleteRequest:    g.Delete,
	}
}

func (g *Games) List(ctx context.Context, req *router.Request) error {
	var q protocol.TokenOnly
	q.Decode(req.Payload())
	if _, ok := g.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	kinds, err := g.games.Types(ctx)
	if err != nil {
		return fmt.Errorf("list game types: %w", err)
	}
	out := make([]protocol.GameSummary, len(kinds))
	for i, k := range kinds {
		out[i] = protocol.GameSummary{Type: k, Description: game.Description(k)}
	}
	return req.Succeed(protocol.EncodeList(out))
}

// Levels lists the levels of one game type, marking those the player has
// already submitted.
func (g *Games) Levels(ctx context.Context, req *router.Request) error {
	var q protocol.GameLevelQuery
	q.Decode(req.Payload())
	s, ok := g.session(req, q.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}
	if !types.IsGameType(q.Type) {
		return req.Fail("Unknown game type: " + q.Type)
	}

	items, err := g.games.Levels(ctx, q.Type)
	if err != nil {
		return fmt.Errorf("list game levels: %w", err)
	}
	done, err := g.results.CompletedTargets(ctx, s.UserID, types.GameTarget(q.Type))
	if err != nil {
		return fmt.Errorf("completed games: %w", err)
	}
	out := make([]protocol.GameLevel, len(items))
	for i, it := range items {
		status := protocol.LevelUnlocked
		if done[it.ID] {
			status = protocol.LevelCompleted
		}
		out[i] = protocol.GameLevel{ID: it.ID, Level: it.Level, Status: status}
	}
	return req.Succeed(protocol.EncodeList(out))
}

func (g *Games) Data(ctx context.Context, req *router.Request) error {
	var q protocol.ItemQuery
	q.Decode(req.Payload())
	if _, ok := g.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	item, err := g.games.Get(ctx, q.ID)
	if isNotFound(err) {
		return req.Fail("Game not found")
	}
	if err != nil {
		return fmt.Errorf("get game %d: %w", q.ID, err)
	}
	questions, err := g.images.Prepare(item)
	if err != nil {
		return fmt.Errorf("prepare game %d: %w", item.ID, err)
	}
	return req.Succeed(protocol.GameData{ID: item.ID, Type: item.Type, Level: item.Level, QuestionJSON: questions}.Encode())
}

// Submit scores the answers server side when present; otherwise the
// client-reported score is recorded as is.
func (g *Games) Submit(ctx context.Context, req *router.Request) error {
	var sub protocol.GameSubmit
	sub.Decode(req.Payload())
	s, ok := g.session(req, sub.Token)
	if !ok {
		return req.Fail(reasonInvalidSession)
	}

	item, err := g.games.Get(ctx, sub.GameID)
	if isNotFound(err) {
		return req.Fail("Game not found")
	}
	if err != nil {
		return fmt.Errorf("get game %d: %w", sub.GameID, err)
	}

	var reply protocol.GameSubmitReply
	if strings.TrimSpace(sub.Details) != "" {
		res, err := game.Score(item.Type, item.QuestionJSON, sub.Details)
		if errors.Is(err, game.ErrInvalidAnswers) {
			return req.Fail("Invalid answers")
		}
		if err != nil {
			return fmt.Errorf("score game %d: %w", item.ID, err)
		}
		reply = protocol.GameSubmitReply{Score: res.Score, Message: res.Message()}
	} else {
		score, err := strconv.ParseFloat(strings.TrimSpace(sub.Score), 64)
		if err != nil || score < 0 {
			return req.Fail("A score or answers are required")
		}
		reply = protocol.GameSubmitReply{Score: score, Message: "Score recorded."}
	}

	now := g.now().UTC()
	id, err := g.results.Insert(ctx, &types.Result{
		UserID:      s.UserID,
		TargetType:  types.GameTarget(item.Type),
		TargetID:    item.ID,
		Score:       reply.Score,
		UserAnswer:  sub.Details,
		Feedback:    reply.Message,
		Status:      types.StatusGraded,
		SubmittedAt: now,
		GradedAt:    &now,
	})
	if err != nil {
		return fmt.Errorf("insert game result: %w", err)
	}
	g.logger.Info("game submitted",
		logger.Int64("user_id", s.UserID), logger.Int64("game_id", item.ID), logger.Int64("result_id", id))
	return req.Succeed(reply.Encode())
}

func (g *Games) Create(ctx context.Context, req *router.Request) error {
	var c protocol.GameCreate
	c.Decode(req.Payload())
	if _, ok := g.session(req, c.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	item := &types.GameItem{Type: c.Type, Level: c.Level, QuestionJSON: c.QuestionJSON}
	if err := item.Validate(); err != nil {
		return req.Fail(err.Error())
	}
	id, err := g.games.Create(ctx, item)
	if err != nil {
		return fmt.Errorf("create game: %w", err)
	}
	return req.Succeed(protocol.FormatID(id))
}

func (g *Games) Update(ctx context.Context, req *router.Request) error {
	var u protocol.GameUpdate
	u.Decode(req.Payload())
	if _, ok := g.session(req, u.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	item := &types.GameItem{ID: u.ID, Type: u.Type, Level: u.Level, QuestionJSON: u.QuestionJSON}
	if err := item.Validate(); err != nil {
		return req.Fail(err.Error())
	}
	err := g.games.Update(ctx, item)
	if isNotFound(err) {
		return req.Fail("Game not found")
	}
	if err != nil {
		return fmt.Errorf("update game %d: %w", u.ID, err)
	}
	return req.Succeed("Game updated")
}

func (g *Games) Delete(ctx context.Context, req *router.Request) error {
	var q protocol.ItemQuery
	q.Decode(req.Payload())
	if _, ok := g.session(req, q.Token); !ok {
		return req.Fail(reasonInvalidSession)
	}

	err := g.games.Delete(ctx, q.ID)
	if isNotFound(err) {
		return req.Fail("Game not found")
	}
	if err != nil {
		return fmt.Errorf("delete game %d: %w", q.ID, err)
	}
	return req.Succeed("Game deleted")
}
