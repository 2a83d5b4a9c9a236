// Package labels は解析エンドポイントが返すラベルを表示用の文字列に変換する
package labels

// 解析側が返す番兵ラベル
const (
	FaceNotFound  = "face not found"
	AnalysisError = "ошибка анализа"
)

// table はラベルと表示文字列の対応表（起動時に一度だけ構築される）
var table = map[string]string{
	"angry":       "Злость 😠",
	"disgust":     "Отвращение 🤢",
	"fear":        "Страх 😨",
	"happy":       "Радость 😄",
	"sad":         "Грусть 😢",
	"surprise":    "Удивление 😮",
	"neutral":     "Нейтрально 😐",
	FaceNotFound:  "Лицо не найдено",
	AnalysisError: "Ошибка анализа",
}

// Translate はラベルを表示文字列に変換する
// 対応表にないラベルはそのまま返す
func Translate(label string) string {
	if text, ok := table[label]; ok {
		return text
	}
	return label
}

// Table は対応表のコピーを返す
func Table() map[string]string {
	result := make(map[string]string, len(table))
	for label, text := range table {
		result[label] = text
	}
	return result
}
