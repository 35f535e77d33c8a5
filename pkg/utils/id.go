package utils

import gonanoid "github.com/matoous/go-nanoid/v2"

const characters = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateID gera ids curtos para contas e business managers.
func GenerateID() (string, error) {
	return gonanoid.Generate(characters, 6)
}

// GenerateRunID identifica uma execução de sincronização; maior para evitar colisões entre execuções.
func GenerateRunID() (string, error) {
	return gonanoid.Generate(characters, 16)
}
