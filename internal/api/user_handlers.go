package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/webroll/webroll/internal/capture"
)

type createUserRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (s *Server) createUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusBadRequest, resultInvalidUsername)
		return
	}
	if req.Name == "" {
		writeResult(w, http.StatusBadRequest, resultInvalidUsername)
		return
	}
	if req.Password == "" {
		writeResult(w, http.StatusBadRequest, resultInvalidPassword)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("POST /user/create: hash password", zap.Error(err))
		writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
		return
	}

	if _, err := s.users.CreateUser(r.Context(), req.Name, string(hash)); err != nil {
		if errors.Is(err, capture.ErrDuplicateName) {
			writeResult(w, http.StatusConflict, resultUnavailableUsername)
			return
		}
		s.logger.Error("POST /user/create: store user", zap.String("name", req.Name), zap.Error(err))
		writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
		return
	}
	writeResult(w, http.StatusCreated, resultSuccess)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResult(w, http.StatusForbidden, resultInvalidCredentials)
		return
	}

	user, err := s.users.UserByName(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, capture.ErrNotFound) {
			writeResult(w, http.StatusForbidden, resultInvalidCredentials)
			return
		}
		s.logger.Error("POST /user/login: fetch user", zap.String("name", req.Name), zap.Error(err))
		writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Passhash), []byte(req.Password)) != nil {
		writeResult(w, http.StatusForbidden, resultInvalidCredentials)
		return
	}

	token, err := s.sessions.Create(user.ID)
	if err != nil {
		s.logger.Error("POST /user/login: create session", zap.Int64("user_id", user.ID), zap.Error(err))
		writeResult(w, http.StatusInternalServerError, resultUnexpectedError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:  "user",
		Value: strconv.FormatInt(user.ID, 10),
		Path:  "/",
	})
	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeResult(w, http.StatusCreated, resultSuccess)
}

func (s *Server) deleteAllSessions(w http.ResponseWriter, r *http.Request) {
	s.sessions.DeleteAll(userID(r.Context()))
	writeResult(w, http.StatusOK, resultSuccess)
}
