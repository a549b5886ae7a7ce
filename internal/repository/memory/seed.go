package memory

import (
	"time"

	"github.com/mmeshcher/marketplace-management/internal/model"
)

// SeedDemo наполняет хранилище небольшим каталогом для локального запуска без базы.
func SeedDemo(s *Store) {
	loja := s.PutStore(model.Store{Name: "Loja Exemplo"})

	base := time.Now().Add(-time.Hour)
	catalog := []model.Product{
		{Name: "Camiseta Básica", PriceCents: 4990, Category: "Moda", Stock: 25, Rating: 4.5},
		{Name: "Caneca Personalizada", PriceCents: 2990, Category: "Casa", Stock: 40, Rating: 4.8},
		{Name: "Fone Bluetooth", PriceCents: 15990, Category: "Eletrônicos", Stock: 8, Rating: 4.2},
		{Name: "Kit Café Especial", PriceCents: 8900, Category: "Alimentos", Stock: 15, Rating: 4.9},
	}

	for i, p := range catalog {
		p.StoreID = loja.ID
		p.Active = true
		p.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		s.PutProduct(p)
	}
}
