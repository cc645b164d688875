package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// HTTPStatusError 表示站点返回了非 2xx 的 HTTP 状态码。
// 上层据此生成更可操作的 error_msg（限流/不存在/重定向各有提示）。
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Location   string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "HTTP status error"
	}
	loc := strings.TrimSpace(e.Location)
	if loc == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d location=%s", e.StatusCode, loc)
}

// FetchURL 抓取一个远程词表页面。
//
// 约束：不做缓存、不做限速（缓存由 cache 层、重试由 httpx 层统一实现）。
func FetchURL(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	if strings.TrimSpace(u) == "" {
		return nil, errors.New("url 不能为空")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		loc := strings.TrimSpace(resp.Header.Get("Location"))
		return nil, &HTTPStatusError{URL: u, StatusCode: resp.StatusCode, Location: loc}
	}
	if len(b) == 0 {
		return nil, errors.New("empty response body")
	}
	return b, nil
}
