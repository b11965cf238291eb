// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 tutorcab Contributors

package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tutorcab/tutorcab/internal/logging"
	"github.com/tutorcab/tutorcab/internal/validate"
	"github.com/tutorcab/tutorcab/pkg/errutil"
)

// Client-facing messages.
const (
	msgPhoneTaken        = "Пользователь с таким телефоном уже зарегистрирован"
	msgBadCredentials    = "Неверный телефон или пароль"
	msgTokenMissing      = "Токен доступа не предоставлен"
	msgTokenInvalid      = "Недействительный или истекший токен"
	msgProfileNotFound   = "Профиль пользователя не найден"
	msgRequestInvalid    = "Некорректный запрос"
	msgFieldsInvalid     = "Некорректно заполнены поля: "
	msgStepRejected      = "Недопустимый шаг онбординга"
	msgRegistered        = "Кабинет успешно создан"
	msgServiceNotReady   = "Сервис временно недоступен"
	msgRegisterFailed    = "Внутренняя ошибка сервера при регистрации"
	msgLoginFailed       = "Внутренняя ошибка сервера при входе"
	msgLogoutFailed      = "Внутренняя ошибка сервера при выходе"
	msgStepFailed        = "Внутренняя ошибка сервера при обновлении онбординга"
	msgStudentFailed     = "Внутренняя ошибка сервера при добавлении ученика"
	msgLessonFailed      = "Внутренняя ошибка сервера при создании урока"
	msgMaterialFailed    = "Внутренняя ошибка сервера при добавлении материала"
	msgSessionLookupFail = "Внутренняя ошибка сервера при проверке токена"
	msgRouteNotFound     = "Маршрут не найден"
	msgMethodNotAllowed  = "Метод не поддерживается"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
}

// classify maps an error to its HTTP status and client message. internal is
// the message used for anything unexpected.
func classify(err error, internal string) (int, string) {
	switch code := errutil.Code(err); code {
	case "PROFILE_CONFLICT":
		return http.StatusBadRequest, msgPhoneTaken
	case validate.Code:
		fields := validate.FieldsOf(err)
		names := make([]string, 0, len(fields))
		for _, f := range fields {
			names = append(names, f.Field)
		}
		return http.StatusBadRequest, msgFieldsInvalid + strings.Join(names, ", ")
	case "ONBOARDING_TRANSITION_REJECTED":
		return http.StatusBadRequest, msgStepRejected
	case "REQUEST_INVALID":
		return http.StatusBadRequest, msgRequestInvalid
	case "SESSION_INVALID", "SESSION_EXPIRED":
		return http.StatusUnauthorized, msgTokenInvalid
	case "AUTH_PHONE_NOT_FOUND", "AUTH_BAD_CREDENTIAL":
		return http.StatusUnauthorized, msgBadCredentials
	case "PROFILE_NOT_FOUND":
		return http.StatusNotFound, msgProfileNotFound
	default:
		return http.StatusInternalServerError, internal
	}
}

// writeError logs err and writes the classified response.
func writeError(w http.ResponseWriter, r *http.Request, err error, internal string) {
	status, msg := classify(err, internal)
	logger := logging.FromContext(r.Context())
	switch {
	case status >= http.StatusInternalServerError:
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
	case status == http.StatusNotFound:
		errutil.LogErrorContext(r.Context(), logger, "profile missing for request", err)
	default:
		logger.DebugContext(r.Context(), "request rejected", "code", errutil.Code(err), "status", status)
	}
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}
