package main

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"
)

func main() {
	// Проверяем health endpoint
	fmt.Println("Проверяем health endpoint...")
	resp, err := http.Get("http://localhost:8080/health")
	if err != nil {
		fmt.Printf("Ошибка при обращении к health endpoint: %v\n", err)
		return
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Printf("Ошибка чтения ответа: %v\n", err)
		return
	}

	fmt.Printf("Health check ответ (статус %d):\n%s\n\n", resp.StatusCode, string(body))

	// Если есть тестовое изображение, отправляем его на анализ
	if len(os.Args) > 1 {
		imagePath := os.Args[1]
		fmt.Printf("Отправляем изображение %s на анализ...\n", imagePath)

		err := testAnalyze(imagePath)
		if err != nil {
			fmt.Printf("Ошибка при тестировании анализа: %v\n", err)
		}
	} else {
		fmt.Println("Для тестирования анализа запустите: go run test_client.go <путь_к_изображению>")
	}
}

func testAnalyze(imagePath string) error {
	// Читаем файл изображения
	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("ошибка чтения файла изображения: %w", err)
	}

	// Создаем multipart form
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	// Добавляем файл изображения
	imageWriter, err := writer.CreateFormFile("image", "test_roof.jpg")
	if err != nil {
		return fmt.Errorf("ошибка создания form field: %w", err)
	}

	if _, err := imageWriter.Write(imageData); err != nil {
		return fmt.Errorf("ошибка записи изображения: %w", err)
	}

	// Добавляем координаты и время (пример для Москвы, полдень)
	writer.WriteField("latitude", "55.7558")
	writer.WriteField("longitude", "37.6176")
	writer.WriteField("time", "2025-06-21T12:00:00Z")

	writer.Close()

	// Отправляем запрос
	client := &http.Client{Timeout: 2 * time.Minute}
	req, err := http.NewRequest("POST", "http://localhost:8080/api/v1/analyze", &body)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("Content-Type", writer.FormDataContentType())

	fmt.Println("Отправляем запрос на анализ...")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка отправки запроса: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	fmt.Printf("Ответ анализа (статус %d):\n%s\n", resp.StatusCode, string(respBody))
	return nil
}
