// Copyright (c) 2026 SHIC AB
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package attachment

import (
	"context"
	"log/slog"
)

// File is a downloaded attachment with owned content.
type File struct {
	Name    string
	Content []byte
}

// Downloader fetches attachment bytes. Implemented by feishu.Client.
type Downloader interface {
	DownloadFile(ctx context.Context, url string) ([]byte, error)
}

// Service extracts attachment references and downloads their content.
type Service struct {
	dl Downloader
}

// NewService creates an attachment service.
func NewService(dl Downloader) *Service {
	return &Service{dl: dl}
}

// ExtractRefs implements the pure-parse side of the service.
func (s *Service) ExtractRefs(formJSON string) ([]Ref, error) {
	return ExtractRefs(formJSON)
}

// Download fetches each referenced file. Entries that fail to download are
// dropped from the result with a logged warning; one bad file never fails
// the whole batch.
func (s *Service) Download(ctx context.Context, refs []Ref) []File {
	files := make([]File, 0, len(refs))
	for _, ref := range refs {
		content, err := s.dl.DownloadFile(ctx, ref.URL)
		if err != nil {
			slog.Warn("attachment download failed, dropping",
				"name", ref.Name,
				"error", err,
			)
			continue
		}
		files = append(files, File{Name: ref.Name, Content: content})
	}
	return files
}
