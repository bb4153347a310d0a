package core

import (
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/RecoveryAshes/PageHarvest/internal/utils"
)

// 浏览指纹参数
const (
	// Referer历史窗口大小
	refererHistoryLimit = 10
	// 随机轮换概率
	randomRotateChance = 0.10
	// 换取不同User-Agent的最大重抽次数
	maxRotateRedraws = 5
)

// userAgentPool 桌面浏览器User-Agent池,覆盖Chrome/Firefox/Edge/Safari三大平台
var userAgentPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/118.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/119.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36 Edg/119.0.0.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64; rv:109.0) Gecko/20100101 Firefox/120.0",
}

// Identity 浏览身份状态,HTTP与浏览器两条抓取路径共享
// 所有状态由内部互斥锁保护,外部只通过方法访问
type Identity struct {
	mu             sync.Mutex
	currentAgent   string
	refererHistory []string          // 最近访问URL,最多保留10条
	sessionCookies map[string]string // hostname -> "name=value; name2=value2"
	customHeaders  map[string]string // 用户自定义头部,最后应用
	rnd            *rand.Rand

	redactor *utils.HeaderRedactor
}

// NewIdentity 创建身份状态,随机选取初始User-Agent
// rnd为nil时使用全局随机源
func NewIdentity(rnd *rand.Rand) *Identity {
	id := &Identity{
		refererHistory: make([]string, 0, refererHistoryLimit),
		sessionCookies: make(map[string]string),
		customHeaders:  make(map[string]string),
		rnd:            rnd,
		redactor:       utils.NewHeaderRedactor(),
	}
	id.currentAgent = userAgentPool[id.intn(len(userAgentPool))]
	return id
}

func (id *Identity) intn(n int) int {
	if id.rnd != nil {
		return id.rnd.Intn(n)
	}
	return rand.Intn(n)
}

func (id *Identity) float64() float64 {
	if id.rnd != nil {
		return id.rnd.Float64()
	}
	return rand.Float64()
}

// HeadersFor 构建完整请求头
// 轮换条件: 重试中(attempt>0)、10%随机概率、或目标域名与上次访问不同
func (id *Identity) HeadersFor(targetURL string, attempt int) http.Header {
	id.mu.Lock()
	defer id.mu.Unlock()

	id.rotateIfNeeded(targetURL, attempt)

	isInitial := len(id.refererHistory) == 0

	headers := http.Header{}
	headers.Set("User-Agent", id.currentAgent)
	headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8,application/signed-exchange;v=b3;q=0.7")
	headers.Set("Accept-Language", "en-US,en;q=0.9")
	headers.Set("Accept-Encoding", "gzip, deflate, br")
	headers.Set("DNT", "1")
	headers.Set("Connection", "keep-alive")
	headers.Set("Upgrade-Insecure-Requests", "1")
	headers.Set("Sec-Fetch-Dest", "document")
	headers.Set("Sec-Fetch-Mode", "navigate")
	headers.Set("Sec-Fetch-User", "?1")
	headers.Set("Cache-Control", "max-age=0")
	headers.Set("sec-ch-ua", `"Not_A Brand";v="8", "Chromium";v="120", "Google Chrome";v="120"`)
	headers.Set("sec-ch-ua-mobile", "?0")
	headers.Set("sec-ch-ua-platform", `"Windows"`)

	// 首次请求模拟直接输入地址,后续模拟同站导航
	if isInitial {
		headers.Set("Sec-Fetch-Site", "none")
	} else {
		headers.Set("Sec-Fetch-Site", "same-origin")
		headers.Set("Referer", id.refererHistory[len(id.refererHistory)-1])
	}

	// 回放该域名的会话Cookie
	if parsed, err := url.Parse(targetURL); err == nil {
		if cookie, ok := id.sessionCookies[parsed.Hostname()]; ok {
			headers.Set("Cookie", cookie)
		}
	}

	// 用户自定义头部优先级最高
	for name, value := range id.customHeaders {
		headers.Set(name, value)
	}

	utils.Debugf("请求头 [%s]: %s", targetURL, id.redactor.RedactToString(headers))
	return headers
}

// SetCustomHeaders 设置用户自定义头部,逐个经过RFC 7230校验
// 任一头部非法时整体拒绝,不做部分应用
func (id *Identity) SetCustomHeaders(headers map[string]string) error {
	validator := utils.NewHeaderValidator()
	for name, value := range headers {
		if err := validator.ValidateHeader(name, value); err != nil {
			return err
		}
	}

	id.mu.Lock()
	defer id.mu.Unlock()
	for name, value := range headers {
		id.customHeaders[name] = value
	}
	return nil
}

// rotateIfNeeded 按轮换条件更换User-Agent,保证调用方持有锁
func (id *Identity) rotateIfNeeded(targetURL string, attempt int) {
	shouldRotate := attempt > 0 || id.float64() < randomRotateChance || id.crossedDomain(targetURL)
	if !shouldRotate {
		return
	}

	old := id.currentAgent
	id.currentAgent = userAgentPool[id.intn(len(userAgentPool))]

	// 尽量换成不同的UA,最多重抽5次
	for redraws := 0; id.currentAgent == old && redraws < maxRotateRedraws; redraws++ {
		id.currentAgent = userAgentPool[id.intn(len(userAgentPool))]
	}

	utils.Debugf("🔄 User-Agent已轮换: %s", strings.SplitN(id.currentAgent, ") ", 2)[0])
}

// crossedDomain 判断目标域名是否与上次访问不同
func (id *Identity) crossedDomain(targetURL string) bool {
	if len(id.refererHistory) == 0 {
		return false
	}
	last, err := url.Parse(id.refererHistory[len(id.refererHistory)-1])
	if err != nil {
		return false
	}
	target, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	return target.Hostname() != last.Hostname()
}

// RecordCookies 记录Set-Cookie响应头,只保留name=value部分
func (id *Identity) RecordCookies(hostname string, setCookieValues []string) {
	if hostname == "" || len(setCookieValues) == 0 {
		return
	}

	pairs := make([]string, 0, len(setCookieValues))
	for _, raw := range setCookieValues {
		pair := strings.TrimSpace(strings.SplitN(raw, ";", 2)[0])
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	if len(pairs) == 0 {
		return
	}

	id.mu.Lock()
	id.sessionCookies[hostname] = strings.Join(pairs, "; ")
	id.mu.Unlock()

	utils.Debugf("🍪 已记录 %d 个Cookie: %s", len(pairs), hostname)
}

// PushReferer 追加访问记录,超出窗口时丢弃最旧的一条
func (id *Identity) PushReferer(targetURL string) {
	id.mu.Lock()
	defer id.mu.Unlock()

	id.refererHistory = append(id.refererHistory, targetURL)
	if len(id.refererHistory) > refererHistoryLimit {
		id.refererHistory = id.refererHistory[1:]
	}
}

// CustomHeaders 返回用户自定义头部的副本
func (id *Identity) CustomHeaders() map[string]string {
	id.mu.Lock()
	defer id.mu.Unlock()

	headers := make(map[string]string, len(id.customHeaders))
	for name, value := range id.customHeaders {
		headers[name] = value
	}
	return headers
}

// CurrentAgent 返回当前User-Agent
func (id *Identity) CurrentAgent() string {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.currentAgent
}

// IdentityStats 身份状态快照,用于日志与调试
type IdentityStats struct {
	CurrentAgent   string `json:"current_agent"`
	AgentPoolSize  int    `json:"agent_pool_size"`
	RefererEntries int    `json:"referer_entries"`
	CookieDomains  int    `json:"cookie_domains"`
}

// Stats 返回身份状态快照
func (id *Identity) Stats() IdentityStats {
	id.mu.Lock()
	defer id.mu.Unlock()
	return IdentityStats{
		CurrentAgent:   id.currentAgent,
		AgentPoolSize:  len(userAgentPool),
		RefererEntries: len(id.refererHistory),
		CookieDomains:  len(id.sessionCookies),
	}
}

// Reset 清空Cookie与访问历史,重新抽取User-Agent
func (id *Identity) Reset() {
	id.mu.Lock()
	defer id.mu.Unlock()

	id.sessionCookies = make(map[string]string)
	id.refererHistory = id.refererHistory[:0]
	id.currentAgent = userAgentPool[id.intn(len(userAgentPool))]
	utils.Debugf("身份状态已重置")
}
