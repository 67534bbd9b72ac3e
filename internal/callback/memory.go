package callback

import (
	"context"
	"log/slog"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"github.com/easeaico/project-keeper/internal/utils"
)

type sessionGetter interface {
	Get(ctx context.Context, req *session.GetRequest) (*session.GetResponse, error)
}

type sessionArchiver interface {
	AddSession(ctx context.Context, s session.Session) error
}

// NewArchiveReplyCallback 在叙述结束后重新读取会话，把主持人的回复交给记忆服务归档。
// 命令回合不归档；读取或归档失败只记录日志，不影响已经生成的回复。
func NewArchiveReplyCallback(sessions sessionGetter, archiver sessionArchiver) agent.AfterAgentCallback {
	return func(ctx agent.CallbackContext) (*genai.Content, error) {
		if IsCommand(utils.ExtractContentText(ctx.UserContent())) {
			return nil, nil
		}
		archiveReply(ctx, sessions, archiver, &session.GetRequest{
			AppName:   ctx.AppName(),
			UserID:    ctx.UserID(),
			SessionID: ctx.SessionID(),
		})
		return nil, nil
	}
}

func archiveReply(ctx context.Context, sessions sessionGetter, archiver sessionArchiver, req *session.GetRequest) bool {
	resp, err := sessions.Get(ctx, req)
	if err != nil {
		slog.Error("failed to reload session after turn", "session_id", req.SessionID, "error", err.Error())
		return false
	}
	if resp == nil || resp.Session == nil {
		slog.Warn("session vanished before archiving", "session_id", req.SessionID)
		return false
	}
	if err := archiver.AddSession(ctx, resp.Session); err != nil {
		slog.Error("failed to archive keeper reply", "session_id", req.SessionID, "error", err.Error())
		return false
	}
	return true
}
