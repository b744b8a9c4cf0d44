package controllers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"Gin_postgres_redis_lendshare/app"
	"Gin_postgres_redis_lendshare/config"
	"Gin_postgres_redis_lendshare/db"
	"Gin_postgres_redis_lendshare/models"
	"Gin_postgres_redis_lendshare/service"
	"Gin_postgres_redis_lendshare/session"

	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/google/uuid"
)

type Srv struct {
	WA        *webauthn.WebAuthn
	Repo      *db.Repo
	Core      *service.Core
	Sess      *session.Store
	AppSess   *session.AppSessionStore
	WebOrigin string
	Cfg       config.Config
}

func GetSrv(a *app.App) *Srv {
	s := &Srv{
		WA:        a.WA,
		Repo:      a.Repo,
		Core:      a.Core,
		AppSess:   a.AppSessions(),
		WebOrigin: a.Config.WebOrigin,
		Cfg:       a.Config,
	}
	if a.RDB != nil {
		s.Sess = session.NewStore(a.RDB, a.Config.SessionTTL)
	}
	return s
}

// --- helpers ---

func currentUserID(c *gin.Context) string { return c.GetString(app.CtxUserID) }

// pageParams 读取 ?page=&size=，非法值交给 repo 归一化
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("size", "20"))
	return page, size
}

// pathID 路径参数不是 UUID 时直接 404；uuid 列遇到非法字面量 Postgres 会报 22P02
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if _, err := uuid.Parse(id); err != nil {
		c.JSON(http.StatusNotFound, app.H{"error": "not found"})
		return "", false
	}
	return id, true
}

// bodyIDs 按 name, value 成对传入；空值跳过，第一个非法值回 400
func bodyIDs(c *gin.Context, pairs ...string) bool {
	for i := 0; i+1 < len(pairs); i += 2 {
		name, v := pairs[i], pairs[i+1]
		if v == "" {
			continue
		}
		if _, err := uuid.Parse(v); err != nil {
			c.JSON(http.StatusBadRequest, app.H{"error": fmt.Sprintf("%s is not a valid id", name)})
			return false
		}
	}
	return true
}

// 统一设置业务会话 Cookie
func (s *Srv) setAppCookie(w http.ResponseWriter, sessionID string, maxAge time.Duration) {
	secure := strings.HasPrefix(s.WebOrigin, "https://")
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
		MaxAge:   int(maxAge / time.Second),
	})
}

// 登录成功：创建会话 + 记录登录快照
func (s *Srv) issueSession(ctx context.Context, w http.ResponseWriter, userID string, ip, ua string) error {
	_ = s.Repo.TouchUserLogin(ctx, userID, ip, ua)
	id := uuid.NewString()
	if err := s.AppSess.Create(ctx, id, userID, ip, ua); err != nil {
		return err
	}
	s.setAppCookie(w, id, s.AppSess.TTL())
	return nil
}

// WebAuthn: DB user -> waUser
type waUser struct {
	user  models.User
	creds []webauthn.Credential
}

func (u *waUser) WebAuthnID() []byte                         { id, _ := uuid.Parse(u.user.ID); return id[:] }
func (u *waUser) WebAuthnName() string                       { return u.user.Username }
func (u *waUser) WebAuthnDisplayName() string                { return u.user.DisplayName }
func (u *waUser) WebAuthnCredentials() []webauthn.Credential { return u.creds }

func toWaCred(c models.Credential) webauthn.Credential {
	return webauthn.Credential{
		ID:              c.CredentialID,
		PublicKey:       c.PublicKey,
		AttestationType: c.AttestationType,
		Authenticator: webauthn.Authenticator{
			AAGUID:       c.AAGUID,
			SignCount:    c.SignCount,
			CloneWarning: c.CloneWarning,
		},
		Flags: webauthn.CredentialFlags{
			BackupEligible: c.BackupEligible,
			BackupState:    c.BackupState,
		},
	}
}

func (s *Srv) loadWAUserByID(ctx context.Context, id string) (*waUser, error) {
	u, err := s.Repo.FindUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cs, _ := s.Repo.LoadUserCredentials(ctx, u.ID)
	ws := make([]webauthn.Credential, 0, len(cs))
	for _, c := range cs {
		ws = append(ws, toWaCred(c))
	}
	return &waUser{user: *u, creds: ws}, nil
}
