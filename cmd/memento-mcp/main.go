// memento-mcp exposes the salient-memory core as an MCP stdio server.
//
// Environment variables:
//
//	MEMENTO_DB_PATH       — SQLite database path (default: ./data/memento.db)
//	MEMENTO_VECTOR_PATH   — sqvect index path (default: ./data/memento.vec)
//	MEMENTO_VECTOR_DIM    — vector dimension (default: 1536)
//	ANTHROPIC_API_KEY     — enables LLM-backed feature extraction
//	OPENAI_API_KEY        — enables OpenAI embeddings (preferred if set)
//	GEMINI_API_KEY        — enables Gemini embeddings (fallback)
//	MEMENTO_REDIS_ADDR    — optional low-latency retry-queue notify hint
//
// Usage:
//
//	go install github.com/goblincore/memento/cmd/memento-mcp
//	memento-mcp
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	memento "github.com/goblincore/memento"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func main() {
	cfg := memento.Config{
		DBPath:    envOr("MEMENTO_DB_PATH", "./data/memento.db"),
		RedisAddr: os.Getenv("MEMENTO_REDIS_ADDR"),
	}

	vectorDim := 1536
	if v := os.Getenv("MEMENTO_VECTOR_DIM"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			vectorDim = n
		}
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.EmbeddingProvider = memento.NewOpenAIEmbedder(key, memento.WithOpenAIDimension(vectorDim))
	} else if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.EmbeddingProvider = memento.NewGeminiEmbedder(key, vectorDim)
	}

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.LLMProvider = memento.NewAnthropicLLM(key, "")
	}

	if cfg.EmbeddingProvider != nil {
		vecPath := envOr("MEMENTO_VECTOR_PATH", "./data/memento.vec")
		vs, err := memento.NewSqvectVectorStore(context.Background(), vecPath, vectorDim)
		if err != nil {
			log.Fatalf("memento-mcp: vector store init: %v", err)
		}
		cfg.VectorStore = vs
	}

	m, err := memento.Init(cfg)
	if err != nil {
		log.Fatalf("memento-mcp: init: %v", err)
	}
	defer m.Close()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "memento-mcp",
		Version: "1.0.0",
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "storeMemory",
		Description: "Store an observation, extracting features, scoring salience, classifying security tier, and deriving commitments/events.",
	}, storeMemoryHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "recall",
		Description: "Retrieve memories ranked by relevance and salience, with people/salience/time filters.",
	}, recallHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "getBriefing",
		Description: "Get a person-scoped briefing: open loops, upcoming events, relationship trend, recent memories.",
	}, getBriefingHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "listLoops",
		Description: "List open commitments, optionally filtered by owner or person.",
	}, listLoopsHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "closeLoop",
		Description: "Mark a commitment resolved.",
	}, closeLoopHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "setContext",
		Description: "Update a device's context frame (location/people/activity/mood) and get an immediate relevance snapshot.",
	}, setContextHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "whatsRelevant",
		Description: "Get the current context frame (or fused unified context) plus what's relevant right now.",
	}, whatsRelevantHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "clearContext",
		Description: "Clear one or more dimensions of a device's context frame.",
	}, clearContextHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "listDevices",
		Description: "List every registered device frame for a user.",
	}, listDevicesHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "forget",
		Description: "Suppress, archive, or delete a memory.",
	}, forgetHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "forgetPerson",
		Description: "Apply forget to every memory mentioning a person, plus their unlinked loops.",
	}, forgetPersonHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "restore",
		Description: "Reinstate a suppressed or archived memory to active.",
	}, restoreHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "reassociate",
		Description: "Apply explicit people/topic/tag/project edits to a memory and re-score its salience.",
	}, reassociateHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "exportMemories",
		Description: "Export every memory (and derived loops/events) for a user.",
	}, exportMemoriesHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "anticipate",
		Description: "Forecast upcoming context switches from formed behavioral patterns and an optional calendar.",
	}, anticipateHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "dayOutlook",
		Description: "Get a morning-oriented summary of recognized routines and upcoming context switches.",
	}, dayOutlookHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "patternStats",
		Description: "List every learned behavioral pattern for a user with its status, count, and confidence.",
	}, patternStatsHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memoryFeedback",
		Description: "Record used/ignored/dismissed feedback against a pattern-sourced prediction.",
	}, memoryFeedbackHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "identifyUser",
		Description: "Score a message's writing style against behavioral fingerprints to guess its author.",
	}, identifyUserHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "behavioralFeedback",
		Description: "Confirm or correct an identifyUser prediction, reinforcing the right fingerprint.",
	}, behavioralFeedbackHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "behavioralMetrics",
		Description: "Get fingerprint sample count and identification readiness for a user.",
	}, behavioralMetricsHandler(m))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "getStatus",
		Description: "Get aggregate counters: memory counts by state, open/overdue loops, formed patterns, fingerprint readiness.",
	}, getStatusHandler(m))

	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatalf("memento-mcp: %v", err)
	}
}

// --- Input types ---

type storeMemoryInput struct {
	UserID string   `json:"user_id"          jsonschema:"Opaque user identifier"`
	Text   string   `json:"text"             jsonschema:"The observation to store"`
	Topics []string `json:"topics,omitempty" jsonschema:"Current-context topics to bias salience scoring"`
	People []string `json:"people,omitempty" jsonschema:"Current-context people to bias salience scoring"`
	UseLLM bool     `json:"use_llm,omitempty" jsonschema:"Use the configured LLM for feature extraction instead of heuristics"`
}

type recallInput struct {
	UserID            string   `json:"user_id"                     jsonschema:"Opaque user identifier"`
	Query             string   `json:"query,omitempty"              jsonschema:"Free-text search query; empty means pure recency x salience"`
	Limit             int      `json:"limit,omitempty"              jsonschema:"Max results (default 10)"`
	People            []string `json:"people,omitempty"             jsonschema:"Any-of people filter"`
	MinSalience       int      `json:"min_salience,omitempty"       jsonschema:"Minimum salience 0-100"`
	ProjectTag        string   `json:"project_tag,omitempty"        jsonschema:"Restrict to a project tag"`
	IncludeSuppressed bool     `json:"include_suppressed,omitempty" jsonschema:"Include suppressed/archived memories"`
}

type getBriefingInput struct {
	UserID string `json:"user_id"         jsonschema:"Opaque user identifier"`
	Person string `json:"person"          jsonschema:"Person to brief on"`
	Quick  bool   `json:"quick,omitempty" jsonschema:"Trim to loops and relationship trend only"`
}

type listLoopsInput struct {
	UserID          string `json:"user_id"                    jsonschema:"Opaque user identifier"`
	Owner           string `json:"owner,omitempty"             jsonschema:"Filter by owner: self, them, mutual"`
	Person          string `json:"person,omitempty"            jsonschema:"Filter by other party"`
	IncludeOverdue  bool   `json:"include_overdue_only,omitempty" jsonschema:"Return only overdue loops"`
}

type closeLoopInput struct {
	LoopID string `json:"loop_id"        jsonschema:"The open loop's ID"`
	Note   string `json:"note,omitempty" jsonschema:"Closing note"`
}

type setContextInput struct {
	UserID     string   `json:"user_id"              jsonschema:"Opaque user identifier"`
	DeviceID   string   `json:"device_id"            jsonschema:"Device identifier"`
	DeviceType string   `json:"device_type,omitempty" jsonschema:"mobile, desktop, web, api, or mcp"`
	Location   *string  `json:"location,omitempty"`
	People     []string `json:"people,omitempty"`
	Activity   *string  `json:"activity,omitempty"`
	Mood       *string  `json:"mood,omitempty"`
}

type whatsRelevantInput struct {
	UserID   string `json:"user_id"            jsonschema:"Opaque user identifier"`
	DeviceID string `json:"device_id,omitempty" jsonschema:"Device identifier; omit with unified=true for the fused view"`
	Unified  bool   `json:"unified,omitempty"  jsonschema:"Return the fused cross-device context instead of one device's frame"`
}

type clearContextInput struct {
	UserID     string   `json:"user_id"             jsonschema:"Opaque user identifier"`
	DeviceID   string   `json:"device_id,omitempty" jsonschema:"Device identifier; omit for the synthetic user-level aggregate"`
	Dimensions []string `json:"dimensions,omitempty" jsonschema:"Dimensions to clear: location, people, activity, mood, calendar; omit for all"`
}

type listDevicesInput struct {
	UserID string `json:"user_id" jsonschema:"Opaque user identifier"`
}

type forgetInput struct {
	MemoryID string `json:"memory_id"        jsonschema:"The memory's ID"`
	Mode     string `json:"mode"             jsonschema:"suppress, archive, or delete"`
	Reason   string `json:"reason,omitempty" jsonschema:"Why this memory is being forgotten"`
}

type forgetPersonInput struct {
	UserID string `json:"user_id"          jsonschema:"Opaque user identifier"`
	Name   string `json:"name"             jsonschema:"Canonical person name"`
	Mode   string `json:"mode"             jsonschema:"suppress, archive, or delete"`
	Reason string `json:"reason,omitempty" jsonschema:"Why this person's memories are being forgotten"`
}

type restoreInput struct {
	MemoryID string `json:"memory_id" jsonschema:"The memory's ID"`
}

type reassociateInput struct {
	MemoryID     string   `json:"memory_id"                jsonschema:"The memory's ID"`
	AddPeople    []string `json:"add_people,omitempty"`
	RemovePeople []string `json:"remove_people,omitempty"`
	AddTopics    []string `json:"add_topics,omitempty"`
	RemoveTopics []string `json:"remove_topics,omitempty"`
	AddTags      []string `json:"add_tags,omitempty"`
	RemoveTags   []string `json:"remove_tags,omitempty"`
	SetProject   string   `json:"set_project,omitempty"`
}

type exportMemoriesInput struct {
	UserID string `json:"user_id" jsonschema:"Opaque user identifier"`
}

type anticipateInput struct {
	UserID           string `json:"user_id"                      jsonschema:"Opaque user identifier"`
	LookAheadMinutes int    `json:"look_ahead_minutes,omitempty" jsonschema:"Forecast horizon in minutes (default 60)"`
}

type dayOutlookInput struct {
	UserID string `json:"user_id" jsonschema:"Opaque user identifier"`
}

type patternStatsInput struct {
	UserID string `json:"user_id" jsonschema:"Opaque user identifier"`
}

type memoryFeedbackInput struct {
	PatternID string `json:"pattern_id" jsonschema:"The pattern's ID"`
	Action    string `json:"action"     jsonschema:"used, ignored, or dismissed"`
}

type identifyUserInput struct {
	Message    string   `json:"message"               jsonschema:"The message to attribute"`
	Candidates []string `json:"candidates,omitempty" jsonschema:"Restrict matching to these user IDs; omit to search every ready fingerprint"`
}

type behavioralFeedbackInput struct {
	PredictionID string `json:"prediction_id"        jsonschema:"The identifyUser prediction's ID"`
	Correct      bool   `json:"correct"              jsonschema:"Whether the predicted user was correct"`
	ActualUserID string `json:"actual_user_id,omitempty" jsonschema:"The correct user ID, when correct=false"`
}

type behavioralMetricsInput struct {
	UserID string `json:"user_id" jsonschema:"Opaque user identifier"`
}

type getStatusInput struct {
	UserID string `json:"user_id" jsonschema:"Opaque user identifier"`
}

// --- Handlers ---

func storeMemoryHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, storeMemoryInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input storeMemoryInput) (*mcp.CallToolResult, any, error) {
		result, err := m.Store(ctx, input.UserID, input.Text, memento.StoreContext{Topics: input.Topics, People: input.People}, input.UseLLM)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(map[string]any{
			"id":             result.Memory.ID,
			"salience":       result.Memory.Salience,
			"factors":        result.Memory.SalienceFactors,
			"loops_created":  len(result.LoopsCreated),
			"events_created": len(result.EventsCreated),
		})), nil, nil
	}
}

func recallHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, recallInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input recallInput) (*mcp.CallToolResult, any, error) {
		limit := input.Limit
		if limit <= 0 {
			limit = 10
		}
		results, err := m.Recall(ctx, input.UserID, memento.RecallQuery{
			Query:             input.Query,
			Limit:             limit,
			People:            input.People,
			MinSalience:       input.MinSalience,
			ProjectTag:        input.ProjectTag,
			IncludeSuppressed: input.IncludeSuppressed,
		})
		if err != nil {
			return errResult(err), nil, nil
		}
		out := make([]map[string]any, len(results))
		for i, r := range results {
			out[i] = map[string]any{
				"id":         r.Memory.ID,
				"text":       r.Memory.Text,
				"salience":   r.Memory.Salience,
				"relevance":  r.Relevance,
				"rank":       r.Rank,
				"people":     r.Memory.Features.People,
				"created_at": r.Memory.CreatedAt.Format(time.RFC3339),
			}
		}
		return textResult(jsonString(out)), nil, nil
	}
}

func getBriefingHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, getBriefingInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input getBriefingInput) (*mcp.CallToolResult, any, error) {
		b, err := m.GetBriefing(input.UserID, input.Person, input.Quick)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(b)), nil, nil
	}
}

func listLoopsHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, listLoopsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input listLoopsInput) (*mcp.CallToolResult, any, error) {
		loops, err := m.ListLoops(input.UserID, memento.LoopOwner(input.Owner), input.Person, input.IncludeOverdue)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(loops)), nil, nil
	}
}

func closeLoopHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, closeLoopInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input closeLoopInput) (*mcp.CallToolResult, any, error) {
		if _, err := m.CloseLoop(input.LoopID, input.Note); err != nil {
			return errResult(err), nil, nil
		}
		return textResult(`{"closed":true}`), nil, nil
	}
}

func setContextHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, setContextInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input setContextInput) (*mcp.CallToolResult, any, error) {
		deviceType := memento.DeviceType(input.DeviceType)
		if deviceType == "" {
			deviceType = memento.DeviceAPI
		}
		snap, err := m.SetContext(ctx, input.UserID, memento.SetContextInput{
			Location: input.Location,
			People:   input.People,
			Activity: input.Activity,
			Mood:     input.Mood,
		}, input.DeviceID, deviceType)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(snap)), nil, nil
	}
}

func whatsRelevantHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, whatsRelevantInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input whatsRelevantInput) (*mcp.CallToolResult, any, error) {
		if input.Unified {
			uc, err := m.GetUnifiedUserContext(input.UserID)
			if err != nil {
				return errResult(err), nil, nil
			}
			return textResult(jsonString(uc)), nil, nil
		}
		if input.DeviceID == "" {
			return textResult(`{"error":"device_id is required unless unified=true"}`), nil, nil
		}
		frame, snap, err := m.WhatMattersNow(input.UserID, input.DeviceID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(map[string]any{"frame": frame, "snapshot": snap})), nil, nil
	}
}

func clearContextHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, clearContextInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input clearContextInput) (*mcp.CallToolResult, any, error) {
		if err := m.ClearContext(input.UserID, input.Dimensions, input.DeviceID); err != nil {
			return errResult(err), nil, nil
		}
		return textResult(`{"cleared":true}`), nil, nil
	}
}

func listDevicesHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, listDevicesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input listDevicesInput) (*mcp.CallToolResult, any, error) {
		devices, err := m.ListDevices(input.UserID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(devices)), nil, nil
	}
}

func forgetHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, forgetInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input forgetInput) (*mcp.CallToolResult, any, error) {
		mem, err := m.Forget(ctx, input.MemoryID, memento.ForgetMode(input.Mode), input.Reason)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(map[string]any{"id": mem.ID, "state": mem.ForgottenState})), nil, nil
	}
}

func forgetPersonHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, forgetPersonInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input forgetPersonInput) (*mcp.CallToolResult, any, error) {
		n, err := m.ForgetPerson(ctx, input.UserID, input.Name, memento.ForgetMode(input.Mode), input.Reason)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(map[string]any{"memories_affected": n})), nil, nil
	}
}

func restoreHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, restoreInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input restoreInput) (*mcp.CallToolResult, any, error) {
		mem, err := m.Restore(ctx, input.MemoryID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(map[string]any{"id": mem.ID, "state": mem.ForgottenState})), nil, nil
	}
}

func reassociateHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, reassociateInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input reassociateInput) (*mcp.CallToolResult, any, error) {
		mem, err := m.Reassociate(ctx, input.MemoryID, memento.ReassociateDiff{
			AddPeople:    input.AddPeople,
			RemovePeople: input.RemovePeople,
			AddTopics:    input.AddTopics,
			RemoveTopics: input.RemoveTopics,
			AddTags:      input.AddTags,
			RemoveTags:   input.RemoveTags,
			SetProject:   input.SetProject,
		})
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(mem)), nil, nil
	}
}

func exportMemoriesHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, exportMemoriesInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input exportMemoriesInput) (*mcp.CallToolResult, any, error) {
		bundle, err := m.ExportMemories(input.UserID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(bundle)), nil, nil
	}
}

func anticipateHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, anticipateInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input anticipateInput) (*mcp.CallToolResult, any, error) {
		a, err := m.Anticipate(input.UserID, nil, input.LookAheadMinutes)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(a)), nil, nil
	}
}

func dayOutlookHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, dayOutlookInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input dayOutlookInput) (*mcp.CallToolResult, any, error) {
		o, err := m.DayOutlook(input.UserID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(o)), nil, nil
	}
}

func patternStatsHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, patternStatsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input patternStatsInput) (*mcp.CallToolResult, any, error) {
		stats, err := m.PatternStats(input.UserID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(stats)), nil, nil
	}
}

func memoryFeedbackHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, memoryFeedbackInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input memoryFeedbackInput) (*mcp.CallToolResult, any, error) {
		if err := m.MemoryFeedback(input.PatternID, memento.FeedbackAction(input.Action)); err != nil {
			return errResult(err), nil, nil
		}
		return textResult(`{"recorded":true}`), nil, nil
	}
}

func identifyUserHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, identifyUserInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input identifyUserInput) (*mcp.CallToolResult, any, error) {
		pred, err := m.IdentifyUser(ctx, input.Message, input.Candidates)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(pred)), nil, nil
	}
}

func behavioralFeedbackHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, behavioralFeedbackInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input behavioralFeedbackInput) (*mcp.CallToolResult, any, error) {
		if err := m.BehavioralFeedback(input.PredictionID, input.Correct, input.ActualUserID); err != nil {
			return errResult(err), nil, nil
		}
		return textResult(`{"recorded":true}`), nil, nil
	}
}

func behavioralMetricsHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, behavioralMetricsInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input behavioralMetricsInput) (*mcp.CallToolResult, any, error) {
		metrics, err := m.BehavioralMetrics(input.UserID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(metrics)), nil, nil
	}
}

func getStatusHandler(m *memento.Memento) func(context.Context, *mcp.CallToolRequest, getStatusInput) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input getStatusInput) (*mcp.CallToolResult, any, error) {
		status, err := m.GetStatus(input.UserID)
		if err != nil {
			return errResult(err), nil, nil
		}
		return textResult(jsonString(status)), nil, nil
	}
}

// --- Helpers ---

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

func errResult(err error) *mcp.CallToolResult {
	return textResult(fmt.Sprintf(`{"error": %q}`, err.Error()))
}

func jsonString(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": "marshal: %v"}`, err)
	}
	return string(data)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
