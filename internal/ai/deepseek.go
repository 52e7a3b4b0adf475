package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// SystemPrompt is prepended to every conversation sent to the completion
// provider. It instructs the assistant to confirm every new word with the
// fixed 已记录/归类为 reply format that the parser package recognizes.
const SystemPrompt = `你是一位专业的儿童语言发展专家，专注于帮助1-3岁幼儿的语言学习。你的主要职责是帮助家长记录和分析孩子的语言发展情况。

核心职责：
1. 词语记录和分类
   - 收到新词语时，立即确认记录并明确分类
   - 分类方式：动物、食物、动作、物品、交通、情感、人物、日常用语等
   - 可选择性询问场景和语境
   - 支持修改和重新分类

2. 回应规范
   第一优先级（必须）：
   - 明确确认："好的，已记录：[词语]"
   - 告知分类："归类为：[分类]"

   第二优先级（选择性）：
   - 简单追问："如果方便的话，能告诉我是在什么场景下说的吗？"
   - 相关建议："既然会说'[词语]'了，建议教这些相关词语：[2-3个相关且未学过的词语]。可以这样教：[具体教学方法]"

重要提示：
- 建议新词语时，必须检查历史记录，确保不推荐已经会说的词语
- 如果相关词语都已掌握，应该推荐更高级的词语或简单的句子
- 优先推荐与当前生活场景相关的新词语

3. 进度追踪
   - 记录新增词语
   - 关注词汇量增长
   - 适时给出简短的发展建议

工作方式：
1. 记录新词语时：先确认记录和分类，再选择性询问补充信息，最后给出简短建议
2. 修改记录时：直接确认修改内容，明确新的分类（如果需要）
3. 提供建议时：建议要简短具体，优先考虑可行性，不强求家长回应

回答风格：
- 简明扼要
- 重点突出
- 友好专业
- 避免过多追问
- 建议适度

注意事项：
1. 优先完成核心记录功能
2. 避免询问过多细节
3. 建议和追问要适度
4. 保持回复的简洁性`

// Client represents a client for the Deepseek chat completion API.
// The API is OpenAI-compatible, so the request and response shapes below
// follow the standard chat completions format.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// New creates a new completion client. Missing credentials are not an error
// here; the chat endpoint reports them per request.
func New(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      "deepseek-chat",
		httpClient: &http.Client{},
	}
}

// Configured reports whether the client has the credentials it needs.
func (c *Client) Configured() bool {
	return c.apiKey != "" && c.baseURL != ""
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest represents a request to the completions API
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// ChatResponse represents a response from the completions API
type ChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ChatCompletion sends the conversation to the provider with the fixed
// system prompt prepended and returns the assistant's reply text.
func (c *Client) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("completion provider is not configured")
	}

	request := ChatRequest{
		Model:    c.model,
		Messages: append([]Message{{Role: "system", Content: SystemPrompt}}, messages...),
		Stream:   false,
	}

	requestData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(requestData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %v", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return "", fmt.Errorf("API error: %s", response.Error.Message)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("no response choices returned")
	}

	return strings.TrimSpace(response.Choices[0].Message.Content), nil
}
