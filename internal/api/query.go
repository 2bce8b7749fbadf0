package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// defaultLimit — размер страницы, если limit не задан.
const defaultLimit = 50

// page читает параметры limit и offset.
func page(r *http.Request) (limit, offset int, err error) {
	limit, err = queryInt(r, "limit", defaultLimit)
	if err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(r, "offset", 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

// pathID разбирает {id} из пути. При ошибке пишет 400 и возвращает false.
func pathID(w http.ResponseWriter, r *http.Request, kind string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid "+kind+" id")
		return uuid.Nil, false
	}
	return id, true
}
