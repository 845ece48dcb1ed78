// Command importcsv loads catalog data (ingredients, tags) from CSV files.
// The import is all-or-nothing: a malformed or duplicate row aborts the
// whole file and is reported with its content.
//
// Usage:
//
//	importcsv -ingredients ingredients.csv
//	importcsv -tags tags.csv
//
// ingredients.csv rows: name,measurement_unit
// tags.csv rows: name,color,slug
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"

	"foodgram/cmd/config"
	migration "foodgram/cmd/database/migrate"
	"foodgram/domain"
	"foodgram/internal/utils"
	"foodgram/pkg/catalog"
)

func main() {
	ingredientsPath := flag.String("ingredients", "", "path to ingredients CSV")
	tagsPath := flag.String("tags", "", "path to tags CSV")
	flag.Parse()

	if *ingredientsPath == "" && *tagsPath == "" {
		log.Fatal("nothing to import: pass -ingredients and/or -tags")
	}

	utils.LoadConfig()
	utils.InitValidator()

	db, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := migration.Migrate(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	catalogService := catalog.NewCatalogService(catalog.NewCatalogRepository(db), utils.Validate)
	ctx := context.Background()

	if *ingredientsPath != "" {
		inputs, err := readIngredients(*ingredientsPath)
		if err != nil {
			log.Fatalf("reading %s: %v", *ingredientsPath, err)
		}
		count, err := catalogService.ImportIngredients(ctx, inputs)
		if err != nil {
			log.Fatalf("importing ingredients: %v", err)
		}
		fmt.Printf("imported %d ingredients\n", count)
	}

	if *tagsPath != "" {
		inputs, err := readTags(*tagsPath)
		if err != nil {
			log.Fatalf("reading %s: %v", *tagsPath, err)
		}
		count, err := catalogService.ImportTags(ctx, inputs)
		if err != nil {
			log.Fatalf("importing tags: %v", err)
		}
		fmt.Printf("imported %d tags\n", count)
	}
}

func readRows(path string, fields int) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = fields
	return reader.ReadAll()
}

func readIngredients(path string) ([]domain.IngredientInput, error) {
	rows, err := readRows(path, 2)
	if err != nil {
		return nil, err
	}

	inputs := make([]domain.IngredientInput, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, domain.IngredientInput{
			Name:            row[0],
			MeasurementUnit: row[1],
		})
	}
	return inputs, nil
}

func readTags(path string) ([]domain.TagInput, error) {
	rows, err := readRows(path, 3)
	if err != nil {
		return nil, err
	}

	inputs := make([]domain.TagInput, 0, len(rows))
	for _, row := range rows {
		inputs = append(inputs, domain.TagInput{
			Name:  row[0],
			Color: row[1],
			Slug:  row[2],
		})
	}
	return inputs, nil
}
