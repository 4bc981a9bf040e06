package xtream

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Provider panels are loose with JSON types: numeric fields arrive as numbers
// or quoted strings depending on the panel software. flexString and flexInt
// accept either form.

type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

type flexInt int64

func (i *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*i = 0
		return nil
	}
	if data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		v = strings.TrimSpace(v)
		if v == "" {
			*i = 0
			return nil
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			*i = 0
			return nil
		}
		*i = flexInt(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*i = flexInt(f)
	return nil
}

type accountDTO struct {
	UserInfo struct {
		Username string  `json:"username"`
		Status   string  `json:"status"`
		ExpDate  flexInt `json:"exp_date"`
		MaxConns flexInt `json:"max_connections"`
		Auth     flexInt `json:"auth"`
		Message  string  `json:"message"`
	} `json:"user_info"`
	ServerInfo struct {
		URL       string `json:"url"`
		ServerURL string `json:"server_url"`
	} `json:"server_info"`
}

type categoryDTO struct {
	CategoryID   flexString `json:"category_id"`
	CategoryName string     `json:"category_name"`
}

type liveStreamDTO struct {
	StreamID   flexInt    `json:"stream_id"`
	Name       string     `json:"name"`
	CategoryID flexString `json:"category_id"`
	StreamIcon string     `json:"stream_icon"`
	Added      flexInt    `json:"added"`
}

type vodStreamDTO struct {
	StreamID   flexInt    `json:"stream_id"`
	Name       string     `json:"name"`
	CategoryID flexString `json:"category_id"`
	StreamIcon string     `json:"stream_icon"`
	Container  string     `json:"container_extension"`
	Added      flexInt    `json:"added"`
}

type seriesDTO struct {
	SeriesID     flexInt    `json:"series_id"`
	Name         string     `json:"name"`
	CategoryID   flexString `json:"category_id"`
	Cover        string     `json:"cover"`
	LastModified flexInt    `json:"last_modified"`
}
