package main

// General API documentation for swaggo. Generate with `swag init -g cmd/llamagate/docs.go`.
//
// @title           llamagate API
// @version         1.0
// @description     Ollama and OpenAI compatible gateway in front of a single llama.cpp server.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
