package domain

import "time"

// Cascade rules keep the snapshot referentially sound when an owning record
// goes away. They mutate the snapshot in place and return the blob ids the
// caller must delete in the same commit.

// RemoveBook deletes the book with the given id together with its PDF
// annotations. It reports whether the book existed and returns the blob id
// of its attached file, if any.
func RemoveBook(s *Snapshot, bookID string) (removed bool, blobIDs []string) {
	i := s.FindBook(bookID)
	if i < 0 {
		return false, nil
	}
	if f := s.Books[i].File; f != nil && f.BlobID != "" {
		blobIDs = append(blobIDs, f.BlobID)
	}
	s.Books = append(s.Books[:i], s.Books[i+1:]...)

	kept := s.PDFAnnotations[:0]
	for _, a := range s.PDFAnnotations {
		if a.BookID != bookID {
			kept = append(kept, a)
		}
	}
	clear(s.PDFAnnotations[len(kept):])
	s.PDFAnnotations = kept
	return true, blobIDs
}

// RemoveCategory deletes the category and re-homes its books to fallback.
// Each moved book is stamped with stamp(book.UpdatedAt), which must return an
// instant after its argument so the move wins a later merge.
// It returns the number of books moved.
func RemoveCategory(s *Snapshot, categoryID, fallback string, stamp func(prev time.Time) time.Time) (removed bool, rehomed int) {
	i := s.FindCategory(categoryID)
	if i >= 0 {
		s.Categories = append(s.Categories[:i], s.Categories[i+1:]...)
		removed = true
	}
	if categoryID == fallback {
		return removed, 0
	}
	for j := range s.Books {
		if s.Books[j].CategoryID == categoryID {
			s.Books[j].CategoryID = fallback
			s.Books[j].Touch(stamp(s.Books[j].UpdatedAt))
			rehomed++
		}
	}
	return removed, rehomed
}

// RemoveProject deletes the project and returns the blob ids of its files.
func RemoveProject(s *Snapshot, projectID string) (removed bool, blobIDs []string) {
	i := s.FindProject(projectID)
	if i < 0 {
		return false, nil
	}
	blobIDs = s.Projects[i].BlobIDs()
	s.Projects = append(s.Projects[:i], s.Projects[i+1:]...)
	return true, blobIDs
}

// RemoveProjectFile detaches a file from its project, stamps the project,
// and returns the file's blob id.
func RemoveProjectFile(s *Snapshot, projectID, fileID string, now time.Time) (removed bool, blobIDs []string) {
	i := s.FindProject(projectID)
	if i < 0 {
		return false, nil
	}
	p := &s.Projects[i]
	j := p.FindFile(fileID)
	if j < 0 {
		return false, nil
	}
	if b := p.Files[j].BlobID; b != "" {
		blobIDs = append(blobIDs, b)
	}
	p.Files = append(p.Files[:j], p.Files[j+1:]...)
	p.Touch(now)
	return true, blobIDs
}
