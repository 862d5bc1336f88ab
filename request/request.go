package request

import (
	"context"
	"io"
	"net/http"
	"time"
)

// Estrutura que contém as configurações da requisição
type RequestOptions struct {
	Timeout        time.Duration
	Body           io.Reader
	Headers        map[string]string
	Ctx            context.Context
	Client         *http.Client
	Username       string
	Password       string
	PreRequestHook func() error
}

// Tipo de função para aplicar opções à RequestOptions
type RequestOption func(*RequestOptions)

// WithTimeout define um tempo limite para a requisição (ignorado com WithClient)
func WithTimeout(timeout time.Duration) RequestOption {
	return func(o *RequestOptions) {
		o.Timeout = timeout
	}
}

// WithBody define um corpo para a requisição
func WithBody(body io.Reader) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
	}
}

// WithHeader adiciona um cabeçalho à requisição
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// Adiciona múltiplos cabeçalhos de uma vez
func WithHeaders(headers map[string]string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		for k, v := range headers {
			o.Headers[k] = v
		}
	}
}

// WithContext permite definir um contexto para a requisição
func WithContext(ctx context.Context) RequestOption {
	return func(o *RequestOptions) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithClient reutiliza um *http.Client existente (transporte, timeout, proxy)
func WithClient(client *http.Client) RequestOption {
	return func(o *RequestOptions) {
		o.Client = client
	}
}

// WithBasicAuth envia as credenciais via HTTP Basic Auth
func WithBasicAuth(username, password string) RequestOption {
	return func(o *RequestOptions) {
		o.Username = username
		o.Password = password
	}
}

// Define um hook que será executado antes da requisição
func WithPreRequestHook(hook func() error) RequestOption {
	return func(o *RequestOptions) {
		o.PreRequestHook = hook
	}
}

// Do executa uma requisição HTTP com opções personalizadas
func Do(method, url string, opts ...RequestOption) (*http.Response, error) {
	// Configuração padrão
	options := &RequestOptions{
		Timeout: 10 * time.Second,
		Ctx:     context.Background(),
	}

	for _, opt := range opts {
		opt(options)
	}

	if options.PreRequestHook != nil {
		if err := options.PreRequestHook(); err != nil {
			return nil, err
		}
	}

	client := options.Client
	if client == nil {
		client = &http.Client{Timeout: options.Timeout}
	}

	req, err := http.NewRequestWithContext(options.Ctx, method, url, options.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}

	if options.Username != "" || options.Password != "" {
		req.SetBasicAuth(options.Username, options.Password)
	}

	return client.Do(req)
}
