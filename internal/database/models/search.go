package models

type SearchResult struct {
	Tasks   []Task   `json:"tasks"`
	Reviews []Review `json:"reviews"`
}
